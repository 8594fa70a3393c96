package translit

import (
	"strings"
	"testing"
)

func TestSlugify_Cyrillic(t *testing.T) {
	result := Slugify("Привет мир", 60)

	if result != "privet-mir" {
		t.Errorf("Expected 'privet-mir', got '%s'", result)
	}
}

func TestSlugify_Latin(t *testing.T) {
	result := Slugify("Hello, World!", 60)

	if result != "hello-world" {
		t.Errorf("Expected 'hello-world', got '%s'", result)
	}
}

func TestSlugify_CapsAtMaxLen(t *testing.T) {
	long := strings.Repeat("слово ", 30)

	result := Slugify(long, 60)

	if len(result) > 60 {
		t.Errorf("Expected slug capped at 60 bytes, got %d: %s", len(result), result)
	}
}

func TestSlugify_NoTrailingHyphenAfterCap(t *testing.T) {
	// The cap lands right after a word boundary, leaving a hyphen to trim
	result := Slugify("aaaa bbbb cccc", 10)

	if strings.HasSuffix(result, "-") {
		t.Errorf("Expected no trailing hyphen, got '%s'", result)
	}
}

func TestSlugify_ZeroMaxLenMeansUnlimited(t *testing.T) {
	result := Slugify("one two three four", 0)

	if result != "one-two-three-four" {
		t.Errorf("Expected full slug, got '%s'", result)
	}
}

func TestSlugify_MixedScripts(t *testing.T) {
	result := Slugify("Обзор iPhone 15", 60)

	if result != "obzor-iphone-15" {
		t.Errorf("Expected 'obzor-iphone-15', got '%s'", result)
	}
}
