package compile

type compileRequest struct {
	Code     string `json:"code" example:"print(1)"`
	Language string `json:"language" example:"python3" enums:"python3,java,cpp,c"`
}

type compileResponse struct {
	Output string `json:"output" example:"1\n"`
}

// compileErrorResponse mirrors the execution service's own error body.
type compileErrorResponse struct {
	Error string `json:"error" example:"syntax error"`
}
