package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type TransferRequest struct {
	ToID  string `json:"to_id"`
	Units int64  `json:"units"`
}

type DelegatedTransferRequest struct {
	FromID string `json:"from_id"`
	ToID   string `json:"to_id"`
	Units  int64  `json:"units"`
}

type ApproveRequest struct {
	SpenderID string `json:"spender_id"`
	Units     int64  `json:"units"`
}

type MintRequest struct {
	ToID  string `json:"to_id"`
	Units int64  `json:"units"`
}

type BalanceResponse struct {
	HolderID string `json:"holder_id"`
	Units    int64  `json:"units"`
}
