package monitoring

import (
	"fmt"
	"testing"
)

func TestSetLogger_Redirect(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var captured string
	SetLogger(func(format string, v ...interface{}) {
		captured = fmt.Sprintf(format, v...)
	})

	Logf("stored design %s (%d scenarios)", "abc", 4)
	if captured != "stored design abc (4 scenarios)" {
		t.Errorf("captured %q", captured)
	}
}

func TestSetLogger_NilMutes(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) { called = true })
	Logf("warm up")
	if !called {
		t.Fatal("logger was not called")
	}

	called = false
	SetLogger(nil)
	Logf("should be dropped")
	if called {
		t.Error("nil logger should mute, not keep the previous hook")
	}
}

func TestLogf_Default(t *testing.T) {
	if Logf == nil {
		t.Fatal("Logf should default to a usable logger")
	}
	Logf("default logger check: %s", "ok")
}
