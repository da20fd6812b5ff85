package pcsc

import (
	"bytes"
	"testing"
)

func TestReaderNames(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		want []string
	}{
		{
			name: "two readers",
			buf:  []byte("Reader A\x00Reader B\x00\x00"),
			want: []string{"Reader A", "Reader B"},
		},
		{
			name: "single reader",
			buf:  []byte("ACS ACR122U PICC Interface\x00\x00"),
			want: []string{"ACS ACR122U PICC Interface"},
		},
		{
			name: "empty multistring",
			buf:  []byte("\x00"),
			want: nil,
		},
		{
			name: "nil buffer",
			buf:  nil,
			want: nil,
		},
		{
			name: "missing terminator",
			buf:  []byte("Reader A\x00Reader B"),
			want: []string{"Reader A"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			names := &ReaderNames{buf: tt.buf}
			got := names.Collect()
			if len(got) != len(tt.want) {
				t.Fatalf("Collect() = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("name %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestReaderNamesRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
	}{
		{
			name: "two readers",
			buf:  []byte("Reader A\x00Reader B\x00\x00"),
		},
		{
			name: "single reader",
			buf:  []byte("ACS ACR122U PICC Interface\x00\x00"),
		},
		{
			name: "name with spaces and digits",
			buf:  []byte("ACS ACR1252 Dual Reader PICC 00 00\x00\x00"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			names := &ReaderNames{buf: tt.buf}
			// Re-encoding the decoded names must reproduce the buffer
			// byte for byte.
			if got := multistring(names.Collect()); !bytes.Equal(got, tt.buf) {
				t.Errorf("re-encoded = %q, want %q", got, tt.buf)
			}
		})
	}
}

func TestReaderNamesExhaustionIsPersistent(t *testing.T) {
	names := &ReaderNames{buf: []byte("Reader A\x00\x00")}
	if name, ok := names.Next(); !ok || name != "Reader A" {
		t.Fatalf("Next() = %q, %v", name, ok)
	}
	if _, ok := names.Next(); ok {
		t.Fatal("expected exhaustion after last name")
	}
	if _, ok := names.Next(); ok {
		t.Fatal("exhausted iterator produced a name")
	}
}

func TestReaderNamesClone(t *testing.T) {
	names := &ReaderNames{buf: []byte("Reader A\x00Reader B\x00\x00")}
	names.Next()

	clone := names.Clone()
	if name, _ := clone.Next(); name != "Reader B" {
		t.Errorf("clone Next() = %q, want %q", name, "Reader B")
	}
	// Advancing the clone must not advance the original.
	if name, _ := names.Next(); name != "Reader B" {
		t.Errorf("original Next() = %q, want %q", name, "Reader B")
	}
}

func BenchmarkReaderNamesCollect(b *testing.B) {
	buf := multistring([]string{
		"ACS ACR122U PICC Interface",
		"ACS ACR1552 1S CL Reader PICC",
		"ACS ACR1252 Dual Reader PICC",
	})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		names := &ReaderNames{buf: buf}
		if got := names.Collect(); len(got) != 3 {
			b.Fatalf("expected 3 names, got %d", len(got))
		}
	}
}
