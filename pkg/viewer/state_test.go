package viewer

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestValidPage(t *testing.T) {
	tests := []struct {
		page, count int
		known       bool
		want        int
	}{
		{page: 1, want: 1},
		{page: 7, want: 1},
		{page: 3, count: 5, known: true, want: 3},
		{page: 0, count: 5, known: true, want: 1},
		{page: -4, count: 5, known: true, want: 1},
		{page: 9, count: 5, known: true, want: 5},
		{page: 3, count: 0, known: true, want: 1},
	}
	for _, tt := range tests {
		st := State{Page: tt.page, PageCount: tt.count, HasPageCount: tt.known}
		got := st.ValidPage()
		if got != tt.want {
			t.Errorf("%+v: ValidPage = %d, want %d", tt, got, tt.want)
		}
		if got < 1 || got > max(1, tt.count) {
			t.Errorf("%+v: ValidPage %d outside [1, max(1, count)]", tt, got)
		}
	}
}

func TestSetRotation(t *testing.T) {
	tests := []struct {
		in      int
		want    int
		wantErr error
	}{
		{in: 90, want: 90},
		{in: 450, want: 90},
		{in: -90, want: 270},
		{in: 360, want: 0},
		{in: 45, want: 0, wantErr: ErrInvalidRotation},
	}
	for _, tt := range tests {
		s := NewViewportState()
		_, err := s.SetRotation(tt.in)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("SetRotation(%d) error = %v, want %v", tt.in, err, tt.wantErr)
		}
		if got := s.Snapshot().Rotation; got != tt.want {
			t.Errorf("SetRotation(%d) stored %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestEqualMutationsAreSilent(t *testing.T) {
	s := NewViewportState()
	var fields []Field
	s.OnChange(func(c Change) { fields = append(fields, c.Field) })

	if s.SetPage(1) {
		t.Error("SetPage(1) on default state reported a change")
	}
	if s.SetScale(Cover) {
		t.Error("SetScale(Cover) on default state reported a change")
	}
	if changed, _ := s.SetRotation(360); changed {
		t.Error("SetRotation(360) on default state reported a change")
	}
	if !s.SetScale(Numeric(2)) || s.SetScale(Numeric(2)) {
		t.Error("SetScale(2) twice should change exactly once")
	}
	if diff := cmp.Diff([]Field{FieldScale}, fields); diff != "" {
		t.Errorf("notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestSetSourceInvalidatesDocument(t *testing.T) {
	s := NewViewportState()
	s.SetSource("a.pdf")
	s.setPageCount("a.pdf", 4)
	s.SetPage(3)
	if got := s.ValidPage(); got != 3 {
		t.Fatalf("ValidPage = %d, want 3", got)
	}

	s.SetSource("b.pdf")
	st := s.Snapshot()
	if st.HasPageCount || st.HasViewport {
		t.Errorf("page count or viewport survived a source change: %+v", st)
	}
	if st.ValidPage() != 1 {
		t.Errorf("ValidPage = %d, want 1 without a document", st.ValidPage())
	}

	if s.setPageCount("a.pdf", 4) {
		t.Error("page count of a superseded source was accepted")
	}
}

func TestNotificationOrder(t *testing.T) {
	s := NewViewportState()
	var got []string
	s.OnChange(func(c Change) {
		got = append(got, c.Field.String())
		if c.Field == FieldPage && c.State.Page == 2 {
			s.SetScale(Contain)
			got = append(got, "after nested set")
		}
	})
	s.OnChange(func(c Change) {
		got = append(got, "second:"+c.Field.String())
	})

	s.SetPage(2)
	s.SetRotation(90)

	want := []string{
		"page", "after nested set", "second:page",
		"scale", "second:scale",
		"rotation", "second:rotation",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("notification order mismatch (-want +got):\n%s", diff)
	}
}
