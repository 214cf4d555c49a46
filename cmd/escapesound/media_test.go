package main

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func testExtensions() mediaExtensions {
	return newMediaExtensions(
		[]string{".mp3", ".ogg", ".wav"},
		[]string{".mp4", ".mkv"},
	)
}

func TestClassify(t *testing.T) {
	exts := testExtensions()

	cases := []struct {
		file  string
		video bool
		err   error
	}{
		{"forest.mp3", false, nil},
		{"forest.MP3", false, nil},
		{"clips/intro.mp4", true, nil},
		{"intro.MKV", true, nil},
		{"notes.txt", false, ErrUnsupportedMedia},
		{"noextension", false, ErrUnsupportedMedia},
	}

	for _, c := range cases {
		video, err := exts.classify(c.file)
		if !errors.Is(err, c.err) {
			t.Errorf("classify(%q) error = %v, want %v", c.file, err, c.err)
			continue
		}
		if err == nil && video != c.video {
			t.Errorf("classify(%q) video = %v, want %v", c.file, video, c.video)
		}
	}
}

func TestSafeJoin_StaysUnderBase(t *testing.T) {
	base := filepath.Join("/var", "lib", "escapesound", "audio")

	cases := []string{
		"forest.mp3",
		"sub/dir/forest.mp3",
		"../../../etc/passwd",
		"/etc/passwd",
		"..",
		"a/../../b.mp3",
	}

	for _, name := range cases {
		got := safeJoin(base, name)
		if !strings.HasPrefix(got, base+string(filepath.Separator)) && got != base {
			t.Errorf("safeJoin(%q) = %q escapes base", name, got)
		}
	}
}

func TestSafeJoin_PreservesPlainNames(t *testing.T) {
	got := safeJoin("/media", "forest.mp3")
	if got != filepath.Join("/media", "forest.mp3") {
		t.Fatalf("safeJoin = %q", got)
	}
}

func TestValidateControlEvent(t *testing.T) {
	exts := testExtensions()
	badVol := 1.5
	okVol := 0.5

	cases := []struct {
		name string
		ev   Event
		err  error
	}{
		{"bg play ok", BackgroundPlay{File: "forest.mp3"}, nil},
		{"bg play no file", BackgroundPlay{}, ErrMissingFile},
		{"bg play bad ext", BackgroundPlay{File: "forest.txt"}, ErrUnsupportedMedia},
		{"bg switch ok", BackgroundSwitch{File: "cave.mp3"}, nil},
		{"hint ok", HintPlay{File: "hint.mp3"}, nil},
		{"hint with volume", HintPlay{File: "hint.mp3", Volume: &okVol}, nil},
		{"hint bad volume", HintPlay{File: "hint.mp3", Volume: &badVol}, ErrInvalidVolume},
		{"hint video ok", HintPlay{File: "clip.mp4"}, nil},
		{"bg stop", BackgroundStop{}, nil},
		{"hint stop", HintStop{}, nil},
		{"stop all", StopAll{}, nil},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if err := validateControlEvent(c.ev, exts); !errors.Is(err, c.err) {
				t.Fatalf("validateControlEvent(%#v) = %v, want %v", c.ev, err, c.err)
			}
		})
	}
}
