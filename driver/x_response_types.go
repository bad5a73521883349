package driver

import "xmarks/models"

// XErrorResponse represents an error payload from the X OAuth2 endpoints.
type XErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	ErrorURI         string `json:"error_uri,omitempty"`
}

// XUserData is the user object returned by the users endpoints.
type XUserData struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Username        string `json:"username"`
	ProfileImageURL string `json:"profile_image_url,omitempty"`
}

// XUserResponse wraps the /users/me response envelope.
type XUserResponse struct {
	Data XUserData `json:"data"`
}

// XPostData is a single post object from the bookmarks endpoint.
type XPostData struct {
	ID                string `json:"id"`
	Text              string `json:"text"`
	AuthorID          string `json:"author_id"`
	CreatedAt         string `json:"created_at"`
	Lang              string `json:"lang,omitempty"`
	PossiblySensitive bool   `json:"possibly_sensitive"`
}

// XBookmarksResponse is the paged bookmarks envelope. Author objects arrive
// in includes.users and are joined to posts via author_id.
type XBookmarksResponse struct {
	Data     []XPostData `json:"data"`
	Includes struct {
		Users []XUserData `json:"users"`
	} `json:"includes"`
	Meta struct {
		ResultCount int    `json:"result_count"`
		NextToken   string `json:"next_token,omitempty"`
	} `json:"meta"`
}

// ToTokenResponse converts a raw token payload into the model type carrying
// the relative expires_in. Conversion to an absolute expiry happens in
// models.NewProviderToken, nowhere else.
func (r *XTokenResponse) ToTokenResponse() *models.ProviderTokenResponse {
	return &models.ProviderTokenResponse{
		AccessToken:  r.AccessToken,
		TokenType:    r.TokenType,
		ExpiresIn:    r.ExpiresIn,
		RefreshToken: r.RefreshToken,
		Scope:        r.Scope,
	}
}

// XTokenResponse is the raw body of the OAuth2 token endpoint.
type XTokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}
