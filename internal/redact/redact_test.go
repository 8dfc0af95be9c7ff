package redact

import (
	"reflect"
	"testing"
)

func TestRedactor_MasksNestedKeys(t *testing.T) {
	r := New("secret_")
	in := map[string]any{
		"name":         "api-7d4f",
		"secret_token": "abc",
		"spec": map[string]any{
			"Secret_value": "hidden",
			"replicas":     float64(2),
		},
		"containers": []any{
			map[string]any{"secret_env": "x", "image": "nginx"},
		},
	}

	got := r.Apply(in).(map[string]any)
	want := map[string]any{
		"name":         "api-7d4f",
		"secret_token": Mask,
		"spec": map[string]any{
			"Secret_value": Mask,
			"replicas":     float64(2),
		},
		"containers": []any{
			map[string]any{"secret_env": Mask, "image": "nginx"},
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Apply = %#v, want %#v", got, want)
	}
}

func TestRedactor_DoesNotMutateInput(t *testing.T) {
	r := New("")
	in := map[string]any{"secret_key": "value"}

	r.Apply(in)
	if in["secret_key"] != "value" {
		t.Error("input tree must not be mutated")
	}
}

func TestRedactor_ScalarsPassThrough(t *testing.T) {
	r := New("secret_")
	for _, v := range []any{"text", float64(3), true, nil} {
		if got := r.Apply(v); got != v {
			t.Errorf("Apply(%v) = %v", v, got)
		}
	}
}

func TestNewFunc_CustomPredicate(t *testing.T) {
	r := NewFunc(func(key string) bool { return key == "password" })
	got := r.Apply(map[string]any{"password": "hunter2", "user": "admin"}).(map[string]any)
	if got["password"] != Mask || got["user"] != "admin" {
		t.Errorf("unexpected result: %v", got)
	}
}
