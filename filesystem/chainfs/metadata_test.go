package chainfs

import (
	"errors"
	"testing"
)

func TestCreateNodeRejectsSeparator(t *testing.T) {
	fs := newTestFS(t, testDeviceSize, nil)
	if _, _, err := fs.CreateNode(ModeFile|0o644, "a:b", fs.header.root, testTime()); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
}

func TestCreateNodeUniqueness(t *testing.T) {
	fs := newTestFS(t, testDeviceSize, nil)
	root := fs.header.root

	if _, _, err := fs.CreateNode(ModeFile|0o644, "a", root, testTime()); err != nil {
		t.Fatalf("CreateNode error: %v", err)
	}
	if _, _, err := fs.CreateNode(ModeFile|0o644, "a", root, testTime()); !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	// the name becomes available again after removal
	if err := fs.RemoveNode(ModeFile, "a", root); err != nil {
		t.Fatalf("RemoveNode error: %v", err)
	}
	if _, _, err := fs.CreateNode(ModeFile|0o644, "a", root, testTime()); err != nil {
		t.Fatalf("CreateNode after remove error: %v", err)
	}
}

func TestFindNode(t *testing.T) {
	fs := newTestFS(t, testDeviceSize, nil)
	root := fs.header.root

	for _, name := range []string{"one", "two", "three"} {
		if _, _, err := fs.CreateNode(ModeFile|0o644, name, root, testTime()); err != nil {
			t.Fatalf("CreateNode(%q) error: %v", name, err)
		}
	}

	_, n, err := fs.FindNode("two", root)
	if err != nil {
		t.Fatalf("FindNode error: %v", err)
	}
	if n.name != "two" {
		t.Errorf("found node named %q", n.name)
	}
	if n.parent != root {
		t.Errorf("node parent = %d, expected %d", n.parent, root)
	}

	if _, _, err := fs.FindNode("missing", root); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRemoveNodeModeMismatch(t *testing.T) {
	fs := newTestFS(t, testDeviceSize, nil)
	root := fs.header.root

	if _, _, err := fs.CreateNode(ModeDir|0o755, "d", root, testTime()); err != nil {
		t.Fatalf("CreateNode error: %v", err)
	}
	if _, _, err := fs.CreateNode(ModeFile|0o644, "f", root, testTime()); err != nil {
		t.Fatalf("CreateNode error: %v", err)
	}

	if err := fs.RemoveNode(ModeFile, "d", root); !errors.Is(err, ErrIsDirectory) {
		t.Fatalf("expected ErrIsDirectory, got %v", err)
	}
	if err := fs.RemoveNode(ModeDir, "f", root); !errors.Is(err, ErrNotDirectory) {
		t.Fatalf("expected ErrNotDirectory, got %v", err)
	}
}

func TestRemoveNonEmptyDirectory(t *testing.T) {
	fs := newTestFS(t, testDeviceSize, nil)
	root := fs.header.root

	dirBlock, _, err := fs.CreateNode(ModeDir|0o755, "d", root, testTime())
	if err != nil {
		t.Fatalf("CreateNode error: %v", err)
	}
	if _, _, err := fs.CreateNode(ModeFile|0o644, "child", dirBlock, testTime()); err != nil {
		t.Fatalf("CreateNode error: %v", err)
	}

	if err := fs.RemoveNode(ModeDir, "d", root); !errors.Is(err, ErrNotEmpty) {
		t.Fatalf("expected ErrNotEmpty, got %v", err)
	}

	if err := fs.RemoveNode(ModeFile, "child", dirBlock); err != nil {
		t.Fatalf("RemoveNode error: %v", err)
	}
	if err := fs.RemoveNode(ModeDir, "d", root); err != nil {
		t.Fatalf("RemoveNode after emptying error: %v", err)
	}
}

func TestRemoveNodeReleasesSpace(t *testing.T) {
	fs := newTestFS(t, testDeviceSize, nil)
	root := fs.header.root

	before, err := fs.FreeSpace()
	if err != nil {
		t.Fatalf("FreeSpace error: %v", err)
	}

	block, _, err := fs.CreateNode(ModeFile|0o644, "big", root, testTime())
	if err != nil {
		t.Fatalf("CreateNode error: %v", err)
	}
	data := patternData(int(10 * BlockSize))
	if _, err := fs.WriteNode(block, 0, data, testTime()); err != nil {
		t.Fatalf("WriteNode error: %v", err)
	}

	if err := fs.RemoveNode(ModeFile, "big", root); err != nil {
		t.Fatalf("RemoveNode error: %v", err)
	}

	after, err := fs.FreeSpace()
	if err != nil {
		t.Fatalf("FreeSpace error: %v", err)
	}
	if after != before {
		t.Errorf("free space %d after create+write+remove, expected %d", after, before)
	}
}

func TestChildNodes(t *testing.T) {
	fs := newTestFS(t, testDeviceSize, nil)
	root := fs.header.root

	names := map[string]bool{"a": false, "b": false, "c": false}
	for name := range names {
		if _, _, err := fs.CreateNode(ModeFile|0o644, name, root, testTime()); err != nil {
			t.Fatalf("CreateNode(%q) error: %v", name, err)
		}
	}

	_, children, err := fs.childNodes(root)
	if err != nil {
		t.Fatalf("childNodes error: %v", err)
	}
	if len(children) != len(names) {
		t.Fatalf("got %d children, expected %d", len(children), len(names))
	}
	for _, child := range children {
		seen, ok := names[child.name]
		if !ok || seen {
			t.Errorf("unexpected or duplicate child %q", child.name)
		}
		names[child.name] = true
	}
}
