package tlv

import (
	"bytes"
	"testing"
)

func TestFind(t *testing.T) {
	nodes, err := Decode(Hex(
		"70 0A", "5A 08 4111111111111111",
		"5A 02 5555",
	))
	if err != nil {
		t.Fatal(err)
	}

	t.Run("Top level only", func(t *testing.T) {
		n, ok := Find(nodes, 0x5A)
		if !ok || !bytes.Equal(n.Value, Hex("5555")) {
			t.Errorf("Find() = %X, %v", n.Value, ok)
		}
	})

	t.Run("Recursive prefers earlier subtree", func(t *testing.T) {
		n, ok := FindRecursive(nodes, 0x5A)
		if !ok || !bytes.Equal(n.Value, Hex("4111111111111111")) {
			t.Errorf("FindRecursive() = %X, %v", n.Value, ok)
		}
	})

	t.Run("Missing", func(t *testing.T) {
		if _, ok := FindRecursive(nodes, 0x57); ok {
			t.Error("tag 57 should not be found")
		}
	})
}
