package virtual

import (
	"context"
	"errors"
	"testing"

	"github.com/winstonhome/winston/internal/channel"
	"github.com/winstonhome/winston/internal/module"
)

func initModule(t *testing.T, params map[string][]string) *Module {
	t.Helper()
	m := New()
	err := m.Initialize(context.Background(), []module.ChannelParams{
		{ID: "house", Params: module.NewParameters("house", params)},
	})
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	return m
}

func TestModule_ReadWrite(t *testing.T) {
	m := initModule(t, map[string][]string{
		"value": {"away:bool:rw", "setpoint:float:rw:20.5", "scene:string:ro:evening"},
	})
	ctx := context.Background()

	ch, ok := m.Channel("house")
	if !ok {
		t.Fatal("channel house not registered")
	}
	if len(ch.Values()) != 3 {
		t.Fatalf("values = %d, want 3", len(ch.Values()))
	}

	away := ch.Values()[0]
	got, err := away.Read(ctx)
	if err != nil || got != false {
		t.Fatalf("away initial = %v, %v; want false", got, err)
	}
	if err := away.WriteRaw(ctx, "on"); err != nil {
		t.Fatalf("WriteRaw(on) error = %v", err)
	}
	if got, _ := away.Read(ctx); got != true {
		t.Errorf("away = %v, want true", got)
	}

	setpoint := ch.Values()[1]
	if got, _ := setpoint.Read(ctx); got != 20.5 {
		t.Errorf("setpoint = %v, want 20.5", got)
	}
	if err := setpoint.WriteRaw(ctx, "warm"); !errors.Is(err, channel.ErrInvalidValue) {
		t.Errorf("WriteRaw(warm) error = %v, want ErrInvalidValue", err)
	}
	if got, _ := setpoint.Read(ctx); got != 20.5 {
		t.Errorf("setpoint after invalid write = %v, want 20.5", got)
	}

	scene := ch.Values()[2]
	if err := scene.WriteRaw(ctx, "night"); !errors.Is(err, channel.ErrModeViolation) {
		t.Errorf("write read-only error = %v, want ErrModeViolation", err)
	}
	if got, _ := scene.Read(ctx); got != "evening" {
		t.Errorf("scene = %v, want evening", got)
	}
}

func TestModule_InitializeErrors(t *testing.T) {
	tests := []struct {
		name   string
		params map[string][]string
	}{
		{name: "no values", params: map[string][]string{}},
		{name: "bad kind", params: map[string][]string{"value": {"x:complex:rw"}}},
		{name: "bad mode", params: map[string][]string{"value": {"x:bool:sometimes"}}},
		{name: "bad initial", params: map[string][]string{"value": {"x:int:rw:ten"}}},
		{name: "duplicate", params: map[string][]string{"value": {"x:int:rw", "x:bool:rw"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New()
			err := m.Initialize(context.Background(), []module.ChannelParams{
				{ID: "c", Params: module.NewParameters("c", tt.params)},
			})
			if err == nil {
				t.Error("Initialize() expected error, got nil")
			}
		})
	}
}
