package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestConfigValidator(t *testing.T) {
	tests := []struct {
		name    string
		build   func(cv *ConfigValidator)
		wantErr string
	}{
		{"required ok", func(cv *ConfigValidator) { cv.Required("addr", ":8080") }, ""},
		{"required blank", func(cv *ConfigValidator) { cv.Required("addr", "  ") }, "test.addr: required field is empty"},
		{"positive ok", func(cv *ConfigValidator) { cv.PositiveFloat("width", 960) }, ""},
		{"positive zero", func(cv *ConfigValidator) { cv.PositiveFloat("width", 0) }, "test.width: value 0 must be positive"},
		{"range ok", func(cv *ConfigValidator) { cv.RangeFloat("decay", 0.4, 0, 1) }, ""},
		{"range high", func(cv *ConfigValidator) { cv.RangeFloat("decay", 1.5, 0, 1) }, "test.decay: value 1.5 outside [0, 1]"},
		{"less ok", func(cv *ConfigValidator) { cv.Less("min", 0.001, "target", 0.3) }, ""},
		{"less equal", func(cv *ConfigValidator) { cv.Less("min", 0.3, "target", 0.3) }, "must be below target"},
		{"oneof ok", func(cv *ConfigValidator) { cv.OneOf("layout", "force", []string{"force", "circular"}) }, ""},
		{"oneof bad", func(cv *ConfigValidator) { cv.OneOf("layout", "grid", []string{"force", "circular"}) }, `value "grid" not in`},
		{"custom", func(cv *ConfigValidator) { cv.Custom("keys", func() error { return errors.New("dup") }) }, "test.keys: dup"},
		{"when false", func(cv *ConfigValidator) {
			cv.When(false, func(cv *ConfigValidator) { cv.Required("redis", "") })
		}, ""},
		{"when true", func(cv *ConfigValidator) {
			cv.When(true, func(cv *ConfigValidator) { cv.Required("redis", "") })
		}, "test.redis"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cv := NewConfigValidator("test")
			tt.build(cv)
			err := cv.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfigValidator_CollectsAll(t *testing.T) {
	cv := NewConfigValidator("cfg").
		Required("a", "").
		PositiveFloat("b", -1).
		Required("c", "ok")

	if !cv.HasErrors() || len(cv.Errors()) != 2 {
		t.Fatalf("errors = %v", cv.Errors())
	}
	err := cv.Validate()
	if !strings.Contains(err.Error(), "cfg.a") || !strings.Contains(err.Error(), "cfg.b") {
		t.Errorf("joined error = %v", err)
	}
}

func TestDefaultOr(t *testing.T) {
	if got := DefaultOr("", "x"); got != "x" {
		t.Errorf("DefaultOr(\"\") = %q", got)
	}
	if got := DefaultOr(2.5, 1.0); got != 2.5 {
		t.Errorf("DefaultOr(2.5) = %v", got)
	}
}
