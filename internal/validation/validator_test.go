package validation

import (
	"folio/internal/apperr"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Username string  `form:"username" validate:"required,max=150,username"`
	Password string  `form:"password1" validate:"required,pwd"`
	Confirm  string  `form:"password2" validate:"required,eqfield=Password"`
	Color    string  `form:"color" validate:"omitempty,hexcolor"`
	Level    int     `form:"level" validate:"level"`
	Years    float64 `form:"years" validate:"gte=0,lte=99.9"`
}

func TestStructFieldMessages(t *testing.T) {
	err := Struct(signup{Username: "bad name!", Password: "12345678", Confirm: "x", Color: "blue", Level: 9, Years: 120})
	require.Error(t, err)

	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeInvalid, ae.Code)
	assert.Contains(t, ae.Fields, "username")
	assert.Contains(t, ae.Fields, "password1")
	assert.Contains(t, ae.Fields, "password2")
	assert.Contains(t, ae.Fields, "color")
	assert.Contains(t, ae.Fields, "level")
	assert.Contains(t, ae.Fields, "years")
}

func TestStructValid(t *testing.T) {
	assert.NoError(t, Struct(signup{Username: "ana.s+1@x", Password: "s3cretpass", Confirm: "s3cretpass", Level: 3, Years: 2.5}))
}
