package dto

type CreateChatBody struct {
	Name string `json:"name" validate:"required,max=200"`
}

type StageLocalFilesRequest struct {
	Paths []string `json:"paths" validate:"required,min=1,dive,required"`
}

type SetDraftRequest struct {
	Text string `json:"text"`
}

type SendMessageRequest struct {
	Text string `json:"text"`
}

// LoginRequest carries credentials issued by the external login flow.
type LoginRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token"`
}

type ActionResponse struct {
	Outcome string `json:"outcome"`
}

type StageFilesResponse struct {
	Accepted int      `json:"accepted"`
	Rejected int      `json:"rejected"`
	Failed   []string `json:"failed,omitempty"`
}

type SidebarResponse struct {
	Collapsed bool `json:"collapsed"`
}
