package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDataDir(t *testing.T) {
	t.Run("xdg data home", func(t *testing.T) {
		t.Setenv("XDG_DATA_HOME", "/srv/data")
		if got, want := DataDir(), filepath.Join("/srv/data", appDirName); got != want {
			t.Errorf("DataDir() = %q, want %q", got, want)
		}
	})

	t.Run("local share", func(t *testing.T) {
		home := t.TempDir()
		if err := os.MkdirAll(filepath.Join(home, ".local", "share"), 0o755); err != nil {
			t.Fatal(err)
		}
		t.Setenv("XDG_DATA_HOME", "")
		t.Setenv("HOME", home)
		if got, want := DataDir(), filepath.Join(home, ".local", "share", appDirName); got != want {
			t.Errorf("DataDir() = %q, want %q", got, want)
		}
	})

	t.Run("dot dir in home", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("XDG_DATA_HOME", "")
		t.Setenv("HOME", home)
		if got, want := DataDir(), filepath.Join(home, "."+appDirName); got != want {
			t.Errorf("DataDir() = %q, want %q", got, want)
		}
		if got, want := DBPath(), filepath.Join(home, "."+appDirName, dbName); got != want {
			t.Errorf("DBPath() = %q, want %q", got, want)
		}
	})
}
