// internal/models/profile.go
package models

import (
	"fmt"
	"strings"
)

// Field names a single form input.
type Field string

const (
	FieldWebsite   Field = "website"
	FieldInstagram Field = "instagram"
	FieldYouTube   Field = "youtube"
	FieldTikTok    Field = "tiktok"
)

// SocialFields are the handles shared by both profiles, in form order.
var SocialFields = []Field{FieldInstagram, FieldYouTube, FieldTikTok}

// ParseField accepts the canonical lower-case field name.
func ParseField(s string) (Field, error) {
	switch f := Field(strings.ToLower(strings.TrimSpace(s))); f {
	case FieldWebsite, FieldInstagram, FieldYouTube, FieldTikTok:
		return f, nil
	}
	return "", fmt.Errorf("unknown field %q", s)
}

// BusinessProfile is the web presence entered on the first step.
type BusinessProfile struct {
	Website   string `json:"website"`
	Instagram string `json:"instagram"`
	YouTube   string `json:"youtube"`
	TikTok    string `json:"tiktok"`
}

// Set assigns one field. Website is the only business-only field.
func (p *BusinessProfile) Set(field Field, value string) error {
	switch field {
	case FieldWebsite:
		p.Website = value
	case FieldInstagram:
		p.Instagram = value
	case FieldYouTube:
		p.YouTube = value
	case FieldTikTok:
		p.TikTok = value
	default:
		return fmt.Errorf("business profile has no field %q", field)
	}
	return nil
}

// Get returns the raw value of one field.
func (p BusinessProfile) Get(field Field) string {
	switch field {
	case FieldWebsite:
		return p.Website
	case FieldInstagram:
		return p.Instagram
	case FieldYouTube:
		return p.YouTube
	case FieldTikTok:
		return p.TikTok
	}
	return ""
}

// HasSocial reports whether at least one social handle is filled in.
func (p BusinessProfile) HasSocial() bool {
	return anyFilled(p.Instagram, p.YouTube, p.TikTok)
}

// HasWebsite reports whether the website field is filled in.
func (p BusinessProfile) HasWebsite() bool {
	return IsFilled(p.Website)
}

func (p BusinessProfile) IsEmpty() bool {
	return p == BusinessProfile{}
}

// CreatorProfile holds the creator's social handles.
type CreatorProfile struct {
	Instagram string `json:"instagram"`
	YouTube   string `json:"youtube"`
	TikTok    string `json:"tiktok"`
}

func (p *CreatorProfile) Set(field Field, value string) error {
	switch field {
	case FieldInstagram:
		p.Instagram = value
	case FieldYouTube:
		p.YouTube = value
	case FieldTikTok:
		p.TikTok = value
	default:
		return fmt.Errorf("creator profile has no field %q", field)
	}
	return nil
}

func (p CreatorProfile) Get(field Field) string {
	switch field {
	case FieldInstagram:
		return p.Instagram
	case FieldYouTube:
		return p.YouTube
	case FieldTikTok:
		return p.TikTok
	}
	return ""
}

func (p CreatorProfile) HasSocial() bool {
	return anyFilled(p.Instagram, p.YouTube, p.TikTok)
}

func (p CreatorProfile) IsEmpty() bool {
	return p == CreatorProfile{}
}

// IsFilled is the single definition of a non-empty input: whitespace-only
// values count as empty.
func IsFilled(value string) bool {
	return strings.TrimSpace(value) != ""
}

func anyFilled(values ...string) bool {
	for _, v := range values {
		if IsFilled(v) {
			return true
		}
	}
	return false
}
