package media

import (
	"errors"
	"testing"
)

func TestTaskTransitions(t *testing.T) {
	var seen []Status
	task := newTask(RoleInvoice, ListenerFunc(func(e Event) { seen = append(seen, e.Status) }))

	if task.Status != StatusPending {
		t.Fatalf("new task status = %s, want pending", task.Status)
	}
	if err := task.transition(StatusSuccess, ""); err == nil {
		t.Error("pending -> success must be rejected")
	}

	for _, to := range []Status{StatusUploading, StatusRetrying, StatusUploading, StatusSuccess} {
		if err := task.transition(to, ""); err != nil {
			t.Fatalf("transition to %s: %v", to, err)
		}
	}
	for _, to := range []Status{StatusPending, StatusUploading, StatusRetrying, StatusError} {
		if err := task.transition(to, ""); err == nil {
			t.Errorf("success -> %s must be rejected", to)
		}
	}

	want := []Status{StatusPending, StatusUploading, StatusRetrying, StatusUploading, StatusSuccess}
	if len(seen) != len(want) {
		t.Fatalf("events = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, seen[i], want[i])
		}
	}
}

func TestErrorIsTerminal(t *testing.T) {
	task := newTask(RoleDamage, nil)
	task.LastErr = errors.New("boom")
	if err := task.transition(StatusError, ""); err != nil {
		t.Fatalf("pending -> error: %v", err)
	}
	if !task.Status.Terminal() {
		t.Error("error should be terminal")
	}
	if err := task.transition(StatusUploading, ""); err == nil {
		t.Error("error -> uploading must be rejected")
	}
}

func TestDecodeDataURI(t *testing.T) {
	mt, data, err := DecodeDataURI("data:image/png;base64,aGVsbG8=")
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if mt != "image/png" || string(data) != "hello" {
		t.Errorf("got %q %q", mt, data)
	}

	mt, data, err = DecodeDataURI("aGVsbG8")
	if err != nil || mt != "image/jpeg" || string(data) != "hello" {
		t.Errorf("bare base64: got %q %q %v", mt, data, err)
	}

	for _, bad := range []string{"", "data:image/png;base64", "data:image/png,plain", "data:image/png;base64,!!"} {
		if _, _, err := DecodeDataURI(bad); !errors.Is(err, ErrInvalidPayload) {
			t.Errorf("DecodeDataURI(%q) err = %v, want ErrInvalidPayload", bad, err)
		}
	}
}

func TestObjectPath(t *testing.T) {
	cases := map[string]string{
		"image/jpeg":    "abc/avaria_42.jpg",
		"image/png":     "abc/avaria_42.png",
		"image/svg+xml": "abc/avaria_42.svgxml",
		"":              "abc/avaria_42.bin",
	}
	for mt, want := range cases {
		if got := ObjectPath("abc", RoleDamage, 42, mt); got != want {
			t.Errorf("ObjectPath(%q) = %q, want %q", mt, got, want)
		}
	}
}
