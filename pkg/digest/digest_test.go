package digest

import (
	"bytes"
	"testing"
)

func TestParseAlgorithmRoundTrip(t *testing.T) {
	for _, a := range []Algorithm{None, Adler32, CRC32, MD5, SHA256, SHA512, SHA3_256, SHA3_512} {
		name := a.String()
		parsed, err := ParseAlgorithm(name)
		if err != nil {
			t.Fatalf("ParseAlgorithm(%q) failed: %v", name, err)
		}
		if parsed != a {
			t.Errorf("ParseAlgorithm(%q) = %v, want %v", name, parsed, a)
		}
	}
}

func TestParseAlgorithmUnrecognized(t *testing.T) {
	if _, err := ParseAlgorithm("does-not-exist"); err == nil {
		t.Fatal("expected error for unrecognized algorithm name")
	}
}

func TestParseAlgorithmCaseInsensitive(t *testing.T) {
	for _, name := range []string{"SHA256", "Sha256", "sha256"} {
		parsed, err := ParseAlgorithm(name)
		if err != nil {
			t.Fatalf("ParseAlgorithm(%q) failed: %v", name, err)
		}
		if parsed != SHA256 {
			t.Errorf("ParseAlgorithm(%q) = %v, want SHA256", name, parsed)
		}
	}
}

func TestParseAlgorithmAliases(t *testing.T) {
	cases := map[string]Algorithm{
		"ADLER-32":   Adler32,
		"adler-32":   Adler32,
		"CRC-32":     CRC32,
		"MD-5":       MD5,
		"SKEIN-256":  Skein256,
		"SKEIN-1024": Skein1024,
		"SHA-256":    SHA256,
		"SHA2-256":   SHA256,
		"SHA-512":    SHA512,
		"SHA2-512":   SHA512,
	}
	for name, want := range cases {
		got, err := ParseAlgorithm(name)
		if err != nil {
			t.Fatalf("ParseAlgorithm(%q) failed: %v", name, err)
		}
		if got != want {
			t.Errorf("ParseAlgorithm(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestSkeinUnsupported(t *testing.T) {
	if _, err := Init(Skein256); err != ErrUnsupported {
		t.Errorf("Init(Skein256) = _, %v, want ErrUnsupported", err)
	}
	if _, err := Init(Skein1024); err != ErrUnsupported {
		t.Errorf("Init(Skein1024) = _, %v, want ErrUnsupported", err)
	}
}

func TestNoneProducesEmptyResult(t *testing.T) {
	d, err := Init(None)
	if err != nil {
		t.Fatalf("Init(None) failed: %v", err)
	}
	d.Update([]byte("hello"))
	if result := d.Final(); result != nil {
		t.Errorf("Final() = %x, want nil", result)
	}
}

func TestSHA256KnownVector(t *testing.T) {
	d, err := Init(SHA256)
	if err != nil {
		t.Fatalf("Init(SHA256) failed: %v", err)
	}
	d.Update([]byte("abc"))
	got := d.Final()
	want := []byte{
		0xba, 0x78, 0x16, 0xbf, 0x8f, 0x01, 0xcf, 0xea,
		0x41, 0x41, 0x40, 0xde, 0x5d, 0xae, 0x22, 0x23,
		0xb0, 0x03, 0x61, 0xa3, 0x96, 0x17, 0x7a, 0x9c,
		0xb4, 0x10, 0xff, 0x61, 0xf2, 0x00, 0x15, 0xad,
	}
	if !bytes.Equal(got, want) {
		t.Errorf("SHA256(%q) = %x, want %x", "abc", got, want)
	}
}

func TestUpdateStateTransitions(t *testing.T) {
	d, err := Init(CRC32)
	if err != nil {
		t.Fatalf("Init(CRC32) failed: %v", err)
	}
	if d.StateOf() != StateInit {
		t.Fatalf("state after Init = %v, want StateInit", d.StateOf())
	}
	d.Update([]byte("x"))
	if d.StateOf() != StateUpdate {
		t.Fatalf("state after Update = %v, want StateUpdate", d.StateOf())
	}
	d.Final()
	if d.StateOf() != StateFinal {
		t.Fatalf("state after Final = %v, want StateFinal", d.StateOf())
	}
}

func TestUpdateAfterFinalPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic calling Update after Final")
		}
	}()
	d, _ := Init(MD5)
	d.Final()
	d.Update([]byte("x"))
}

func TestNamesIncludesEveryAlgorithm(t *testing.T) {
	names := Names()
	if len(names) != 10 {
		t.Fatalf("len(Names()) = %d, want 10", len(names))
	}
}
