// Package protocol defines the tagged request/response messages clients
// exchange with the reader, mirroring the browser extension's message set.
package protocol

import "page-reader/internal/domain"

// Type tags a request on the wire.
type Type string

const (
	TypeSaveArticle        Type = "SAVE_ARTICLE"
	TypeGetArticles        Type = "GET_ARTICLES"
	TypeDeleteArticle      Type = "DELETE_ARTICLE"
	TypeToggleRead         Type = "TOGGLE_READ"
	TypeToggleFavorite     Type = "TOGGLE_FAVORITE"
	TypeSaveHighlight      Type = "SAVE_HIGHLIGHT"
	TypeGetHighlights      Type = "GET_HIGHLIGHTS"
	TypeDeleteHighlight    Type = "DELETE_HIGHLIGHT"
	TypeGetHighlightCounts Type = "GET_HIGHLIGHT_COUNTS"
	TypeGetAllHighlights   Type = "GET_ALL_HIGHLIGHTS"
	TypeIsPageSaved        Type = "IS_PAGE_SAVED"
)

// ReasonAlreadySaved is reported when SAVE_ARTICLE hits an existing URL.
const ReasonAlreadySaved = "already_saved"

// Request is one of the request types in this package.
type Request interface {
	Type() Type
	request()
}

// ArticlePayload is the article part of SAVE_ARTICLE.
type ArticlePayload struct {
	URL     string `json:"url" validate:"required,url"`
	Title   string `json:"title,omitempty"`
	Favicon string `json:"favicon,omitempty"`
	Excerpt string `json:"excerpt,omitempty"`
	IsRead  bool   `json:"isRead,omitempty"`
}

type SaveArticleRequest struct {
	Article ArticlePayload `json:"article" validate:"required"`
	// HTML optionally carries the page so missing metadata can be filled in.
	HTML string `json:"html,omitempty"`
}

type GetArticlesRequest struct{}

type DeleteArticleRequest struct {
	ArticleID string `json:"articleId" validate:"required"`
}

type ToggleReadRequest struct {
	ArticleID string `json:"articleId" validate:"required"`
}

type ToggleFavoriteRequest struct {
	ArticleID string `json:"articleId" validate:"required"`
}

type SaveHighlightRequest struct {
	URL    string `json:"url" validate:"required"`
	Text   string `json:"text" validate:"required"`
	Prefix string `json:"prefix"`
	Suffix string `json:"suffix"`
}

type GetHighlightsRequest struct {
	URL string `json:"url" validate:"required"`
}

type DeleteHighlightRequest struct {
	URL         string `json:"url" validate:"required"`
	HighlightID string `json:"highlightId" validate:"required"`
}

type GetHighlightCountsRequest struct{}

type GetAllHighlightsRequest struct{}

type IsPageSavedRequest struct {
	URL string `json:"url" validate:"required"`
}

func (SaveArticleRequest) Type() Type        { return TypeSaveArticle }
func (GetArticlesRequest) Type() Type        { return TypeGetArticles }
func (DeleteArticleRequest) Type() Type      { return TypeDeleteArticle }
func (ToggleReadRequest) Type() Type         { return TypeToggleRead }
func (ToggleFavoriteRequest) Type() Type     { return TypeToggleFavorite }
func (SaveHighlightRequest) Type() Type      { return TypeSaveHighlight }
func (GetHighlightsRequest) Type() Type      { return TypeGetHighlights }
func (DeleteHighlightRequest) Type() Type    { return TypeDeleteHighlight }
func (GetHighlightCountsRequest) Type() Type { return TypeGetHighlightCounts }
func (GetAllHighlightsRequest) Type() Type   { return TypeGetAllHighlights }
func (IsPageSavedRequest) Type() Type        { return TypeIsPageSaved }

func (SaveArticleRequest) request()        {}
func (GetArticlesRequest) request()        {}
func (DeleteArticleRequest) request()      {}
func (ToggleReadRequest) request()         {}
func (ToggleFavoriteRequest) request()     {}
func (SaveHighlightRequest) request()      {}
func (GetHighlightsRequest) request()      {}
func (DeleteHighlightRequest) request()    {}
func (GetHighlightCountsRequest) request() {}
func (GetAllHighlightsRequest) request()   {}
func (IsPageSavedRequest) request()        {}

// Responses

type SaveArticleResponse struct {
	Success bool            `json:"success"`
	Reason  string          `json:"reason,omitempty"`
	Article *domain.Article `json:"article,omitempty"`
}

type ArticlesResponse struct {
	Articles []*domain.Article `json:"articles"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

type ToggleReadResponse struct {
	Success bool `json:"success"`
	IsRead  bool `json:"isRead"`
}

type ToggleFavoriteResponse struct {
	Success    bool `json:"success"`
	IsFavorite bool `json:"isFavorite"`
}

type SaveHighlightResponse struct {
	Success     bool   `json:"success"`
	HighlightID string `json:"highlightId"`
}

type HighlightsResponse struct {
	Highlights []*domain.Highlight `json:"highlights"`
}

type HighlightCountsResponse struct {
	Counts map[string]int `json:"counts"`
}

type AllHighlightsResponse struct {
	Highlights map[string][]*domain.Highlight `json:"highlights"`
}

type IsPageSavedResponse struct {
	IsSaved bool `json:"isSaved"`
}
