package internal

import "testing"

func TestCleanDescription(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", NoDescription},
		{"whitespace only", "   \n\t ", NoDescription},
		{"br tags become newlines", "line one<br>line two<BR />line three", "line one\nline two\nline three"},
		{"tags stripped", "<p>Un <strong>héroe</strong> renace.</p>", "Un héroe renace."},
		{"entities decoded", "Rock &amp; Roll &eacute;", "Rock & Roll é"},
		{"nbsp normalized", "uno\u00a0dos", "uno dos"},
		{"newlines collapsed", "a\n\n\n\n\nb", "a\n\nb"},
		{"only markup", "<div><span></span></div>", NoDescription},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanDescription(tt.in); got != tt.want {
				t.Errorf("CleanDescription(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTitleKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Solo Leveling", "sololeveling"},
		{"Solo  Leveling!", "sololeveling"},
		{"SOLO-LEVELING", "sololeveling"},
		{"Tower of God: Part 2", "towerofgodpart2"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := TitleKey(tt.in); got != tt.want {
			t.Errorf("TitleKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCleanScraped(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Título \n con   saltos\t", "Título con saltos"},
		{"nul\x00byte", "nulbyte"},
		{"del\x7fchar", "delchar"},
		{"c1\u0085control\u009fgone", "c1controlgone"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CleanScraped(tt.in); got != tt.want {
			t.Errorf("CleanScraped(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestApplyDefaults(t *testing.T) {
	var m Manga
	m.ApplyDefaults()

	if m.Title != NoTitle {
		t.Errorf("Title = %q, want %q", m.Title, NoTitle)
	}
	if m.Description != NoDescription {
		t.Errorf("Description = %q, want %q", m.Description, NoDescription)
	}
	if m.CoverURL != NoCoverURL {
		t.Errorf("CoverURL = %q, want %q", m.CoverURL, NoCoverURL)
	}
	if m.Author != UnknownPerson || m.Artist != UnknownPerson {
		t.Errorf("Author/Artist = %q/%q, want %q", m.Author, m.Artist, UnknownPerson)
	}
	if m.Status != StatusOngoing {
		t.Errorf("Status = %q, want %q", m.Status, StatusOngoing)
	}
	if m.Type != TypeManga {
		t.Errorf("Type = %q, want %q", m.Type, TypeManga)
	}
	if m.Tags == nil {
		t.Error("Tags should be an empty slice, not nil")
	}
}

func TestApplyDefaultsArtistFallsBackToAuthor(t *testing.T) {
	m := Manga{Author: "Chugong"}
	m.ApplyDefaults()
	if m.Artist != "Chugong" {
		t.Errorf("Artist = %q, want author fallback", m.Artist)
	}
}

func TestApplyDefaultsTruncatesTags(t *testing.T) {
	m := Manga{Tags: make([]string, 15)}
	m.ApplyDefaults()
	if len(m.Tags) != MaxTags {
		t.Errorf("len(Tags) = %d, want %d", len(m.Tags), MaxTags)
	}
}
