package model

import "time"

// Project is a portfolio catalog entry.
// Images is ordered; the element at index 0 is the primary (cover) image.
type Project struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Category      string    `json:"category"`
	Year          string    `json:"year"`
	Description   string    `json:"description"`
	Challenge     string    `json:"challenge"`
	Solution      string    `json:"solution"`
	DesignProcess string    `json:"designProcess"`
	Mentors       []string  `json:"mentors"`
	Materials     []string  `json:"materials"`
	Awards        []string  `json:"awards"`
	Images        []string  `json:"images"`
	Featured      bool      `json:"featured"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// PrimaryImage returns the cover image URL, or "" when the project has no images.
func (p *Project) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// ProjectFields carries the caller-editable fields used to create a project.
type ProjectFields struct {
	Title         string   `json:"title"`
	Category      string   `json:"category"`
	Year          string   `json:"year"`
	Description   string   `json:"description"`
	Challenge     string   `json:"challenge"`
	Solution      string   `json:"solution"`
	DesignProcess string   `json:"designProcess"`
	Mentors       []string `json:"mentors"`
	Materials     []string `json:"materials"`
	Awards        []string `json:"awards"`
	Featured      bool     `json:"featured"`
}

// ProjectPatch is a partial update. Nil fields are left unchanged.
// A non-nil Images replaces the stored ordering and becomes the baseline new uploads are appended to.
type ProjectPatch struct {
	Title         *string   `json:"title,omitempty"`
	Category      *string   `json:"category,omitempty"`
	Year          *string   `json:"year,omitempty"`
	Description   *string   `json:"description,omitempty"`
	Challenge     *string   `json:"challenge,omitempty"`
	Solution      *string   `json:"solution,omitempty"`
	DesignProcess *string   `json:"designProcess,omitempty"`
	Mentors       *[]string `json:"mentors,omitempty"`
	Materials     *[]string `json:"materials,omitempty"`
	Awards        *[]string `json:"awards,omitempty"`
	Images        *[]string `json:"images,omitempty"`
	Featured      *bool     `json:"featured,omitempty"`
}

// Apply copies every non-nil field of the patch onto p. Images are not touched.
func (pp ProjectPatch) Apply(p *Project) {
	setString(&p.Title, pp.Title)
	setString(&p.Category, pp.Category)
	setString(&p.Year, pp.Year)
	setString(&p.Description, pp.Description)
	setString(&p.Challenge, pp.Challenge)
	setString(&p.Solution, pp.Solution)
	setString(&p.DesignProcess, pp.DesignProcess)
	setStrings(&p.Mentors, pp.Mentors)
	setStrings(&p.Materials, pp.Materials)
	setStrings(&p.Awards, pp.Awards)
	if pp.Featured != nil {
		p.Featured = *pp.Featured
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setStrings(dst *[]string, v *[]string) {
	if v != nil {
		*dst = append([]string(nil), (*v)...)
	}
}

// AssetRef identifies one stored image.
type AssetRef struct {
	URL      string `json:"url"`
	Path     string `json:"path"`
	FileName string `json:"fileName"`
}
