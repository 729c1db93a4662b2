package channel

import (
	"context"
	"errors"
	"testing"
)

func TestTypedReadOnlyRejectsWrites(t *testing.T) {
	ctx := context.Background()
	setCalls := 0
	v := Bool("closed", ReadOnly,
		func(context.Context) (bool, error) { return true, nil },
		func(context.Context, bool) error { setCalls++; return nil },
	)

	inputs := []any{true, false, "1", "0", "garbage", 42}
	for _, in := range inputs {
		if err := v.Write(ctx, in); !errors.Is(err, ErrModeViolation) {
			t.Errorf("Write(%v) error = %v, want ErrModeViolation", in, err)
		}
	}
	for _, raw := range []string{"1", "true", "", "x"} {
		if err := v.WriteRaw(ctx, raw); !errors.Is(err, ErrModeViolation) {
			t.Errorf("WriteRaw(%q) error = %v, want ErrModeViolation", raw, err)
		}
	}
	if setCalls != 0 {
		t.Errorf("setter called %d times, want 0", setCalls)
	}

	got, err := v.Read(ctx)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got != true {
		t.Errorf("Read() = %v, want true", got)
	}
}

func TestTypedWriteOnlyRejectsReads(t *testing.T) {
	ctx := context.Background()
	getCalls := 0
	v := String("key", WriteOnly,
		func(context.Context) (string, error) { getCalls++; return "", nil },
		func(context.Context, string) error { return nil },
	)

	if _, err := v.Read(ctx); !errors.Is(err, ErrModeViolation) {
		t.Errorf("Read() error = %v, want ErrModeViolation", err)
	}
	if getCalls != 0 {
		t.Errorf("getter called %d times, want 0", getCalls)
	}
	if err := v.WriteRaw(ctx, "KEY_POWER"); err != nil {
		t.Errorf("WriteRaw() error = %v", err)
	}
}

func TestTypedWriteRaw(t *testing.T) {
	ctx := context.Background()

	var state bool
	b := Bool("state", ReadWrite,
		func(context.Context) (bool, error) { return state, nil },
		func(_ context.Context, v bool) error { state = v; return nil },
	)

	tests := []struct {
		raw     string
		want    bool
		wantErr error
	}{
		{raw: "1", want: true},
		{raw: "0", want: false},
		{raw: "ON", want: true},
		{raw: "off", want: false},
		{raw: "true", want: true},
		{raw: "maybe", want: true, wantErr: ErrInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if tt.wantErr != nil {
				state = tt.want
			}
			err := b.WriteRaw(ctx, tt.raw)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("WriteRaw(%q) error = %v, want %v", tt.raw, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("WriteRaw(%q) error = %v", tt.raw, err)
			}
			got, _ := b.Read(ctx)
			if got != tt.want {
				t.Errorf("after WriteRaw(%q) Read() = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestTypedWriteNative(t *testing.T) {
	ctx := context.Background()
	var stored int64
	v := Int("level", ReadWrite,
		func(context.Context) (int64, error) { return stored, nil },
		func(_ context.Context, n int64) error { stored = n; return nil },
	)

	if err := v.Write(ctx, int64(7)); err != nil {
		t.Fatalf("Write(int64) error = %v", err)
	}
	if stored != 7 {
		t.Errorf("stored = %d, want 7", stored)
	}
	if err := v.Write(ctx, "12"); err != nil {
		t.Fatalf("Write(string) error = %v", err)
	}
	if stored != 12 {
		t.Errorf("stored = %d, want 12", stored)
	}
	if err := v.Write(ctx, 3.5); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("Write(float64) error = %v, want ErrInvalidValue", err)
	}
}

func TestTypedBackendErrorPropagates(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("device offline")
	v := Float("celsius", ReadOnly,
		func(context.Context) (float64, error) { return 0, boom },
		nil,
	)
	if _, err := v.Read(ctx); !errors.Is(err, boom) {
		t.Errorf("Read() error = %v, want %v", err, boom)
	}
}

func TestRender(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{in: true, want: "true"},
		{in: false, want: "false"},
		{in: int64(-3), want: "-3"},
		{in: 21.5, want: "21.5"},
		{in: 20.0, want: "20"},
		{in: "AUTHENTICATED", want: "AUTHENTICATED"},
		{in: nil, want: ""},
		{in: ReadWrite, want: "rw"},
	}
	for _, tt := range tests {
		if got := Render(tt.in); got != tt.want {
			t.Errorf("Render(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{in: "ro", want: ReadOnly},
		{in: "WO", want: WriteOnly},
		{in: "read_write", want: ReadWrite},
		{in: "x", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
