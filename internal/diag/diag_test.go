package diag

import "testing"

type recorder struct{ got []Diagnostic }

func (r *recorder) Report(d Diagnostic) { r.got = append(r.got, d) }

func TestGeneralCountsBySeverity(t *testing.T) {
	rec := &recorder{}
	d := New(rec)

	d.General(22, "foo") // error
	d.General(61, "bar") // warning

	if d.Errors != 1 || d.Warnings != 1 {
		t.Fatalf("Errors=%d Warnings=%d, want 1,1", d.Errors, d.Warnings)
	}
	if len(rec.got) != 2 {
		t.Fatalf("expected 2 reported diagnostics, got %d", len(rec.got))
	}
	if rec.got[0].Message != "undefined symbol foo" {
		t.Fatalf("message = %q", rec.got[0].Message)
	}
}

func TestNoWarnSuppressesWarnings(t *testing.T) {
	rec := &recorder{}
	d := New(rec)
	d.NoWarn = true
	d.General(61, "bar")
	if d.Warnings != 0 || len(rec.got) != 0 {
		t.Fatalf("warnings should be fully suppressed under -w")
	}
}

func TestDisableSuppressesOneCode(t *testing.T) {
	rec := &recorder{}
	d := New(rec)
	d.Disable(61)
	d.General(61, "bar")
	d.General(50)
	if d.Warnings != 1 {
		t.Fatalf("only the disabled code should be suppressed, Warnings=%d", d.Warnings)
	}
}

func TestFailedConsidersWfail(t *testing.T) {
	rec := &recorder{}
	d := New(rec)
	d.General(61, "bar")
	if d.Failed() {
		t.Fatalf("a warning alone should not fail the run")
	}
	d.FailOnWarning = true
	if !d.Failed() {
		t.Fatalf("a warning should fail the run under -wfail")
	}
}

func TestMaxErrorsReturnsErrTooManyErrors(t *testing.T) {
	rec := &recorder{}
	d := New(rec)
	d.MaxErrors = 2
	if err := d.General(22, "a"); err != nil {
		t.Fatalf("first error should not trip the limit: %v", err)
	}
	err := d.General(22, "b")
	if err == nil {
		t.Fatalf("second error should trip MaxErrors=2")
	}
	if _, ok := err.(*ErrTooManyErrors); !ok {
		t.Fatalf("expected *ErrTooManyErrors, got %T", err)
	}
}

func TestGeneralPanicsOnUnknownCode(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("General with an unknown code should panic")
		}
	}()
	New(nil).General(99999)
}
