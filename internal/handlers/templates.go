package handlers

import (
	"fmt"
	"folio/internal/services"
	"folio/internal/utils"
	"html/template"
	"path/filepath"
	"time"

	"github.com/gin-contrib/multitemplate"
)

// Views 所有页面模板名，对应 views/ 下的文件
var Views = []string{
	"home.html",
	"about.html",
	"error.html",
	"confirm_delete.html",
	"auth/login.html",
	"auth/register.html",
	"profile/detail.html",
	"profile/edit.html",
	"experience/form.html",
	"certification/form.html",
	"skills/manage.html",
	"skills/mine.html",
	"projects/list.html",
	"projects/category.html",
	"projects/detail.html",
	"projects/form.html",
	"projects/images.html",
	"projects/image_form.html",
	"catalog/categories.html",
	"catalog/technologies.html",
}

// FuncMap 模板函数，media 依赖存储后端生成地址
func FuncMap(st services.Storage) template.FuncMap {
	return template.FuncMap{
		"dict": func(values ...any) (map[string]any, error) {
			if len(values)%2 != 0 {
				return nil, fmt.Errorf("invalid dict call")
			}
			dict := make(map[string]any, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict keys must be strings")
				}
				dict[key] = values[i+1]
			}
			return dict, nil
		},
		"add":        func(a, b int) int { return a + b },
		"markdown":   utils.RenderMarkdown,
		"linebreaks": utils.Linebreaks,
		"excerpt":    utils.Excerpt,
		"media": func(ref string) string {
			if ref == "" || st == nil {
				return ""
			}
			return st.URL(ref)
		},
		"date": func(t any) string {
			switch v := t.(type) {
			case time.Time:
				return v.Format("Jan 2, 2006")
			case *time.Time:
				if v != nil {
					return v.Format("Jan 2, 2006")
				}
			}
			return ""
		},
		"hasID": func(ids []uint, id uint) bool {
			for _, v := range ids {
				if v == id {
					return true
				}
			}
			return false
		},
		"stars": func(n int) []int {
			out := make([]int, 5)
			for i := range out {
				if i < n {
					out[i] = 1
				}
			}
			return out
		},
	}
}

func LoadTemplates(templatesDir string, st services.Storage) (multitemplate.Renderer, error) {
	r := multitemplate.NewRenderer()

	layouts, err := filepath.Glob(templatesDir + "/layouts/*.html")
	if err != nil {
		return nil, err
	}
	includes, err := filepath.Glob(templatesDir + "/includes/*.html")
	if err != nil {
		return nil, err
	}
	if len(layouts) == 0 {
		return nil, fmt.Errorf("no layouts found in %s", templatesDir)
	}

	assemble := func(view string) []string {
		files := make([]string, 0, len(layouts)+len(includes)+1)
		files = append(files, layouts...)
		files = append(files, includes...)
		return append(files, view)
	}

	funcMap := FuncMap(st)
	for _, name := range Views {
		r.AddFromFilesFuncs(name, funcMap, assemble(filepath.Join(templatesDir, "views", name))...)
	}
	return r, nil
}
