package module

import (
	"context"
	"errors"
	"testing"

	"github.com/winstonhome/winston/internal/channel"
)

func TestParseValueSpec(t *testing.T) {
	tests := []struct {
		decl        string
		wantKind    ValueKind
		wantMode    channel.Mode
		wantInitial string
		wantErr     bool
	}{
		{decl: "away:bool:rw:true", wantKind: KindBool, wantMode: channel.ReadWrite, wantInitial: "true"},
		{decl: "away:bool:rw", wantKind: KindBool, wantMode: channel.ReadWrite, wantInitial: "false"},
		{decl: "setpoint:float:ro", wantKind: KindFloat, wantMode: channel.ReadOnly, wantInitial: "0"},
		{decl: "count:int:wo:7", wantKind: KindInt, wantMode: channel.WriteOnly, wantInitial: "7"},
		{decl: "label:string:rw:a:b", wantKind: KindString, wantMode: channel.ReadWrite, wantInitial: "a:b"},
		{decl: "away:bool", wantErr: true},
		{decl: ":bool:rw", wantErr: true},
		{decl: "x:date:rw", wantErr: true},
		{decl: "x:int:sideways", wantErr: true},
		{decl: "x:int:rw:seven", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.decl, func(t *testing.T) {
			spec, err := ParseValueSpec(tt.decl)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidParameter) {
					t.Errorf("ParseValueSpec() error = %v, want ErrInvalidParameter", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseValueSpec() error = %v", err)
			}
			if spec.Kind != tt.wantKind || spec.Mode != tt.wantMode || spec.Initial != tt.wantInitial {
				t.Errorf("spec = %+v", spec)
			}
		})
	}
}

func TestValueSpec_Bind(t *testing.T) {
	ctx := context.Background()
	stored := "12"
	spec := ValueSpec{Name: "level", Kind: KindInt, Mode: channel.ReadWrite}
	v := spec.Bind(
		func(context.Context) (string, error) { return stored, nil },
		func(_ context.Context, raw string) error { stored = raw; return nil },
	)

	got, err := v.Read(ctx)
	if err != nil || got != int64(12) {
		t.Fatalf("Read() = %v, %v; want 12", got, err)
	}
	if err := v.WriteRaw(ctx, "40"); err != nil {
		t.Fatalf("WriteRaw() error = %v", err)
	}
	if stored != "40" {
		t.Errorf("stored = %q, want 40", stored)
	}
	if err := v.WriteRaw(ctx, "lots"); !errors.Is(err, channel.ErrInvalidValue) {
		t.Errorf("WriteRaw(lots) error = %v, want ErrInvalidValue", err)
	}

	stored = "garbage"
	if _, err := v.Read(ctx); !errors.Is(err, channel.ErrBackend) {
		t.Errorf("Read() of unparsable backend value error = %v, want ErrBackend", err)
	}

	ro := ValueSpec{Name: "temp", Kind: KindFloat, Mode: channel.ReadOnly}.Bind(
		func(context.Context) (string, error) { return "21.5", nil }, nil)
	if err := ro.WriteRaw(ctx, "1"); !errors.Is(err, channel.ErrModeViolation) {
		t.Errorf("WriteRaw() on read-only error = %v, want ErrModeViolation", err)
	}
}
