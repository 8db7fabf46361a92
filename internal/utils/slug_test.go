package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Sales Dashboard", "sales-dashboard"},
		{"  Café Data 2024! ", "cafe-data-2024"},
		{"Machine_Learning--Ops", "machine_learning-ops"},
		{"Power BI & Tableau", "power-bi-tableau"},
		{"!!!", ""},
		{"Ünïcödé   Project", "unicode-project"},
		{"already-a-slug", "already-a-slug"},
		{"_private project_", "private-project"},
		{"数据 Analysis", "analysis"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Slugify(tc.in), "input %q", tc.in)
	}
}
