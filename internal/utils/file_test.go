package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestGetFileExtension(t *testing.T) {
	cases := map[string]string{
		"photo.JPG":     "jpg",
		"a/b/image.png": "png",
		"archive.tar":   "tar",
		"noext":         "",
	}
	for in, want := range cases {
		if got := GetFileExtension(in); got != want {
			t.Errorf("GetFileExtension(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsImageFile(t *testing.T) {
	for _, name := range []string{"a.jpg", "b.PNG", "c.webp", "d.gif"} {
		if !IsImageFile(name) {
			t.Errorf("IsImageFile(%q) = false, want true", name)
		}
	}
	for _, name := range []string{"a.txt", "b.mp4", "noext"} {
		if IsImageFile(name) {
			t.Errorf("IsImageFile(%q) = true, want false", name)
		}
	}
}

func TestListImageFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.png"))
	touch(t, filepath.Join(dir, "notes.txt"))
	touch(t, filepath.Join(dir, "sub", "b.jpg"))
	touch(t, filepath.Join(dir, "training_faces", "c.png"))

	files, err := ListImageFiles(dir, true, "training_faces")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Fatalf("got %d files, want 2: %v", len(files), files)
	}

	flat, err := ListImageFiles(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(flat) != 1 || filepath.Base(flat[0]) != "a.png" {
		t.Fatalf("non-recursive list = %v, want just a.png", flat)
	}
}

func TestUniquePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "img.png")

	if got := UniquePath(path); got != path {
		t.Errorf("UniquePath on free name = %q, want %q", got, path)
	}

	touch(t, path)
	if got := UniquePath(path); got != filepath.Join(dir, "img_1.png") {
		t.Errorf("UniquePath = %q, want img_1.png", got)
	}

	touch(t, filepath.Join(dir, "img_1.png"))
	if got := UniquePath(path); got != filepath.Join(dir, "img_2.png") {
		t.Errorf("UniquePath = %q, want img_2.png", got)
	}
}

func TestMoveFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.png")
	dst := filepath.Join(dir, "out", "dst.png")
	touch(t, src)

	final, err := MoveFile(src, dst)
	if err != nil {
		t.Fatal(err)
	}
	if final != dst {
		t.Errorf("final = %q, want %q", final, dst)
	}
	if FileExists(src) {
		t.Error("source still exists after move")
	}
	if !FileExists(dst) {
		t.Error("destination missing after move")
	}
}

func TestMoveFileNeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.png")
	dst := filepath.Join(dir, "dst.png")
	touch(t, src)
	touch(t, dst)

	final, err := MoveFile(src, dst)
	if err != nil {
		t.Fatal(err)
	}
	if final != filepath.Join(dir, "dst_1.png") {
		t.Errorf("final = %q, want dst_1.png", final)
	}
	if !FileExists(dst) {
		t.Error("existing destination was clobbered")
	}
}

func TestSidecarPath(t *testing.T) {
	if got := SidecarPath("/data/set/img.png"); got != "/data/set/img.txt" {
		t.Errorf("SidecarPath = %q", got)
	}
	if got := SidecarPath("img.jpeg"); got != "img.txt" {
		t.Errorf("SidecarPath = %q", got)
	}
}

func TestEnsureDirAndDirExists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	if DirExists(dir) {
		t.Fatal("directory should not exist yet")
	}
	if err := EnsureDir(dir); err != nil {
		t.Fatal(err)
	}
	if !DirExists(dir) {
		t.Error("directory missing after EnsureDir")
	}
	if err := EnsureDir(dir); err != nil {
		t.Errorf("EnsureDir on existing dir: %v", err)
	}
}
