package storage

import (
	"context"
	"strings"
	"testing"

	"lienzo/internal/ports"
)

func TestNewProviderLocal(t *testing.T) {
	root := t.TempDir()
	sp, err := NewProvider(context.Background(), Config{Provider: "localfs", LocalRoot: root})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if sp.Provider() != "localfs" {
		t.Errorf("unexpected provider %s", sp.Provider())
	}

	ctx := context.Background()
	if _, err := sp.PutObject(ctx, ports.PutObjectInput{ObjectKey: "a/b.csv", Reader: strings.NewReader("FileName1,ImageLink1\n")}); err != nil {
		t.Fatal(err)
	}

	data, err := ReadObject(ctx, sp, "a/b.csv", 1024)
	if err != nil || !strings.HasPrefix(string(data), "FileName1") {
		t.Errorf("ReadObject = %q, %v", data, err)
	}
	if _, err := ReadObject(ctx, sp, "a/b.csv", 4); err == nil {
		t.Error("expected size limit error")
	}
}

func TestNewProviderErrors(t *testing.T) {
	tests := []Config{
		{Provider: "localfs"},
		{Provider: "gdrive", GDriveClientID: "id"},
		{Provider: "s3"},
	}
	for _, cfg := range tests {
		if _, err := NewProvider(context.Background(), cfg); err == nil {
			t.Errorf("expected error for %+v", cfg)
		}
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("STORAGE_PROVIDER", "")
	t.Setenv("STORAGE_LOCAL_ROOT", " /data ")

	cfg := ConfigFromEnv()
	if cfg.Provider != "localfs" || cfg.LocalRoot != "/data" || cfg.IsRemote() {
		t.Errorf("unexpected config %+v", cfg)
	}

	t.Setenv("STORAGE_PROVIDER", "gdrive")
	if !ConfigFromEnv().IsRemote() {
		t.Error("gdrive should be remote")
	}
}

func TestKeys(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"input", InputKey("r1", 0, "table.xlsx"), "runs/r1/inputs/000_table.xlsx"},
		{"input traversal", InputKey("r1", 2, "../../etc/passwd"), "runs/r1/inputs/002_passwd"},
		{"input windows path", InputKey("r1", 3, `C:\photos\my cat.png`), "runs/r1/inputs/003_my_cat.png"},
		{"input empty", InputKey("r1", 4, "  "), "runs/r1/inputs/004_input"},
		{"archive", ArchiveKey("r1", "downloaded_images.zip"), "runs/r1/downloaded_images.zip"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}
