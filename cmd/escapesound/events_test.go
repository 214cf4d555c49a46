package main

import (
	"errors"
	"testing"
)

func TestUnmarshalEvent_BackgroundPlay(t *testing.T) {
	ev, err := UnmarshalEvent([]byte(`{"type":"bg_play","data":{"file":"forest.mp3"}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	play, ok := ev.(BackgroundPlay)
	if !ok || play.File != "forest.mp3" {
		t.Fatalf("unexpected event: %#v", ev)
	}
}

func TestUnmarshalEvent_HintPlayWithVolume(t *testing.T) {
	ev, err := UnmarshalEvent([]byte(`{"type":"hint_play","data":{"file":"hint.mp3","volume":0.4}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	hint, ok := ev.(HintPlay)
	if !ok || hint.File != "hint.mp3" {
		t.Fatalf("unexpected event: %#v", ev)
	}
	if hint.Volume == nil || *hint.Volume != 0.4 {
		t.Fatalf("volume override not decoded: %#v", hint.Volume)
	}
}

func TestUnmarshalEvent_BareStopCommands(t *testing.T) {
	for _, typ := range []string{"bg_stop", "hint_stop", "stop_all"} {
		if _, err := UnmarshalEvent([]byte(`{"type":"` + typ + `"}`)); err != nil {
			t.Errorf("UnmarshalEvent(%q) error: %v", typ, err)
		}
	}
}

func TestUnmarshalEvent_UnknownType(t *testing.T) {
	_, err := UnmarshalEvent([]byte(`{"type":"self_destruct"}`))
	if !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("expected ErrUnknownCommand, got %v", err)
	}
}

func TestMarshalEvent_RoundTrip(t *testing.T) {
	vol := 0.4
	in := HintPlay{File: "hint.mp3", Volume: &vol}

	data, err := MarshalEvent(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out, err := UnmarshalEvent(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	hint, ok := out.(HintPlay)
	if !ok || hint.File != in.File || hint.Volume == nil || *hint.Volume != vol {
		t.Fatalf("round trip mismatch: %#v", out)
	}
}
