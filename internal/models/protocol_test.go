package models

import (
	"errors"
	"testing"
	"time"

	"gorm.io/datatypes"
)

func TestProtocolNumber(t *testing.T) {
	at := time.Date(2024, 3, 7, 15, 0, 0, 0, time.UTC)
	got := ProtocolNumber(at, "a1b2c3d4-0000-4000-8000-000000000000")
	if got != "PRT-20240307-A1B2C3" {
		t.Errorf("ProtocolNumber = %q", got)
	}
}

func TestProtocolTransition(t *testing.T) {
	at := time.Date(2024, 3, 7, 15, 0, 0, 0, time.UTC)
	p := &Protocol{Status: StatusOpen}

	if err := p.Transition(StatusInProgress, "ana", at); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if p.ValidatedBy != "ana" || p.ValidatedAt == nil {
		t.Errorf("validation not stamped: %+v", p)
	}
	if err := p.Transition(StatusOpen, "ana", at); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("em_andamento -> aberto: got %v", err)
	}
	if err := p.Transition(StatusClosed, "bia", at); err != nil {
		t.Fatalf("close: %v", err)
	}
	if p.ClosedBy != "bia" || p.ClosedAt == nil {
		t.Errorf("closing not stamped: %+v", p)
	}
	for _, to := range []string{StatusOpen, StatusInProgress, StatusClosed} {
		if err := p.Transition(to, "x", at); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("encerrado -> %s should be rejected, got %v", to, err)
		}
	}
}

func TestOpenProtocolCanCloseDirectly(t *testing.T) {
	if !CanTransition(StatusOpen, StatusClosed) {
		t.Error("aberto -> encerrado should be allowed")
	}
}

func TestMergePhotos(t *testing.T) {
	p := &Protocol{Photos: datatypes.NewJSONType(PhotoSet{"nota": "old-nota", "avaria": "old-avaria"})}
	p.MergePhotos(map[string]string{"avaria": "new-avaria", "produto": "new-produto"})

	got := p.Photos.Data()
	want := PhotoSet{"nota": "old-nota", "avaria": "new-avaria", "produto": "new-produto"}
	if len(got) != len(want) {
		t.Fatalf("photos = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("photos[%s] = %q, want %q", k, got[k], v)
		}
	}
}

func TestValidReason(t *testing.T) {
	if !ValidReason(ReasonExpired) || ValidReason("perdido") {
		t.Error("ValidReason mismatch")
	}
}
