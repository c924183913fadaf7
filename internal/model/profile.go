package model

import "time"

// ProfileID is the well-known id of the singleton profile document.
const ProfileID = "main_profile"

// Profile is the site owner's résumé and contact document.
type Profile struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Title      string       `json:"title"`
	Email      string       `json:"email"`
	Phone      string       `json:"phone"`
	Location   string       `json:"location"`
	About      string       `json:"about"`
	Vision     string       `json:"vision"`
	Approach   string       `json:"approach"`
	Social     SocialLinks  `json:"social"`
	Education  []Education  `json:"education"`
	Experience []Experience `json:"experience"`
	Skills     []Skill      `json:"skills"`
	Software   []Skill      `json:"software"`
	Languages  []Language   `json:"languages"`
	Interests  []string     `json:"interests"`
	Activities []string     `json:"activities"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

type SocialLinks struct {
	Instagram string `json:"instagram"`
	LinkedIn  string `json:"linkedin"`
	Behance   string `json:"behance"`
}

type Education struct {
	Title       string `json:"title"`
	Institution string `json:"institution"`
	Period      string `json:"period"`
}

type Experience struct {
	Title   string `json:"title"`
	Company string `json:"company"`
	Details string `json:"details"`
	Period  string `json:"period"`
}

// Skill is a named proficiency on a 0-100 scale.
type Skill struct {
	Name  string `json:"name"`
	Level int    `json:"level"`
}

type Language struct {
	Language   string `json:"language"`
	Level      string `json:"level"`
	Percentage int    `json:"percentage"`
}
