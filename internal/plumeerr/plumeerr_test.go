package plumeerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodeOfWrapped(t *testing.T) {
	base := New(PersistenceFailed, errors.New("disk full"))
	wrapped := fmt.Errorf("activate: %w", base)

	if got := CodeOf(wrapped); got != PersistenceFailed {
		t.Errorf("expected %s, got %q", PersistenceFailed, got)
	}
	if !Is(wrapped, PersistenceFailed) {
		t.Error("expected Is to match through fmt wrapping")
	}
	if Is(wrapped, ExportFailed) {
		t.Error("unexpected match for export_failed")
	}
	if CodeOf(errors.New("plain")) != "" {
		t.Error("plain errors carry no code")
	}
}

func TestWrapKeepsExistingCode(t *testing.T) {
	inner := New(NotFound, errors.New("memory x"))
	if got := CodeOf(Wrap(PersistenceFailed, inner)); got != NotFound {
		t.Errorf("expected not_found to survive, got %q", got)
	}
	if Wrap(PersistenceFailed, nil) != nil {
		t.Error("wrapping nil must stay nil")
	}
}

func TestErrorString(t *testing.T) {
	e := Newf(UnknownMode, "mode %q", "poetic")
	if e.Error() != `unknown_mode: mode "poetic"` {
		t.Errorf("unexpected message %q", e.Error())
	}
	if (&Error{Code: ExportFailed}).Error() != "export_failed" {
		t.Error("expected bare code when no cause")
	}
}
