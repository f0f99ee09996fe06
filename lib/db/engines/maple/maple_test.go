package maple

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestLoadRejectsUnknownVersion(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString(magicNum)
	buf.WriteByte(3)
	_ = binary.Write(&buf, binary.LittleEndian, uint64(1))
	_ = binary.Write(&buf, binary.LittleEndian, uint64(0))

	database := NewMapleDB(nil)
	defer database.Close()

	if err := database.Load(&buf); err == nil {
		t.Fatal("expected error for version 3 snapshot")
	}
}

func TestLoadKeepsStateOnTruncatedSnapshot(t *testing.T) {
	src := NewMapleDB(nil)
	defer src.Close()
	src.Set("/a", []byte("one"), 1)
	src.Set("/b", []byte("two"), 2)

	var buf bytes.Buffer
	if err := src.Save(&buf); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	truncated := buf.Bytes()[:buf.Len()-2]

	dst := NewMapleDB(nil)
	defer dst.Close()
	dst.Set("/keep", []byte("x"), 1)

	if err := dst.Load(bytes.NewReader(truncated)); err == nil {
		t.Fatal("expected error for truncated snapshot")
	}
	if !dst.Has("/keep") {
		t.Error("failed load must not replace existing entries")
	}
}

func TestGetInfoCountsEntries(t *testing.T) {
	database := NewMapleDB(&DBOptions{NumShards: 4})
	defer database.Close()

	for i, key := range []string{"/a", "/b", "/c"} {
		database.Set(key, []byte("value"), uint64(i+1))
	}

	info := database.GetInfo()
	if info.Entries != 3 {
		t.Errorf("Entries = %d, want 3", info.Entries)
	}
	if info.SizeBytes <= 0 {
		t.Errorf("SizeBytes = %d, want > 0", info.SizeBytes)
	}
}
