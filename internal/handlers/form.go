package handlers

import (
	"bytes"
	"errors"
	"folio/internal/apperr"
	"folio/internal/services"
	"folio/internal/validation"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
)

// bind 解析表单，类型错误转为字段错误；字段规则由 service 校验
func bind(c *gin.Context, obj any) error {
	if err := c.ShouldBind(obj); err != nil {
		return apperr.Invalid(validation.ToDetails(err))
	}
	return nil
}

// formUpload 读取可选的上传文件。未上传或非 multipart 表单时返回 nil；调用方用完后需调用 close
func formUpload(c *gin.Context, field string) (*services.Upload, func(), error) {
	noop := func() {}
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) ||
		(err == nil && fh.Size == 0 && fh.Filename == "") {
		return nil, noop, nil
	}
	if err != nil {
		return nil, noop, apperr.Invalid(map[string]string{field: "The submitted data was not a file."})
	}
	return openUpload(fh, field)
}

func openUpload(fh *multipart.FileHeader, field string) (*services.Upload, func(), error) {
	f, err := fh.Open()
	if err != nil {
		return nil, func() {}, apperr.Wrap(err, apperr.CodeInvalid, "could not read upload").WithField(field, "The submitted file is empty or unreadable.")
	}

	// 以内容嗅探为准，不信任客户端声明的类型
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		f.Close()
		return nil, func() {}, apperr.Wrap(err, apperr.CodeInvalid, "could not read upload").WithField(field, "The submitted file is empty or unreadable.")
	}
	head = head[:n]

	u := &services.Upload{
		Filename:    fh.Filename,
		ContentType: http.DetectContentType(head),
		Size:        fh.Size,
		Body:        io.MultiReader(bytes.NewReader(head), f),
	}
	return u, func() { f.Close() }, nil
}
