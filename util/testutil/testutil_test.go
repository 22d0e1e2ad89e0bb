package testutil

import (
	"reflect"
	"testing"
)

func TestJS(t *testing.T) {
	arg := struct {
		Name string
		Age  int
	}{"John Doe", 30}
	if got, want := JS(arg), `{"Name":"John Doe","Age":30}`; got != want {
		t.Errorf("JS() = %v, want %v", got, want)
	}
}

func TestAttrs(t *testing.T) {
	got := Attrs(`{"channelId":"c1","n":3}`)
	want := map[string]interface{}{
		"channelId": "c1",
		"n":         float64(3),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Attrs() = %v, want %v", got, want)
	}

	defer func() {
		if recover() == nil {
			t.Error("bad input should panic")
		}
	}()
	Attrs("not json")
}
