package compile

import (
	"errors"
	"net/http"

	"github.com/hilthontt/collaby/internal/domain"
	"github.com/hilthontt/collaby/internal/infrastructure/json"
	"github.com/hilthontt/collaby/internal/infrastructure/logging"
	"github.com/hilthontt/collaby/internal/infrastructure/ratelimiter"
)

type Handler struct {
	compiler domain.Compiler
	// quota is nil when compile requests are unbounded.
	quota  *ratelimiter.Limiter
	logger logging.Logger
}

func NewHandler(compiler domain.Compiler, quota *ratelimiter.Limiter, logger logging.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &Handler{
		compiler: compiler,
		quota:    quota,
		logger:   logger,
	}
}

// CompileHandler godoc
// @Summary      Run code
// @Description  Forwards {code, language} to the code-execution service and relays its answer
// @Tags         compile
// @Accept       json
// @Produce      json
// @Param        request body compileRequest true "Program to run"
// @Success      200 {object} compileResponse "Program output"
// @Failure      400 {object} compileErrorResponse "Invalid request or compile error"
// @Failure      429 {object} json.ErrorResponse "Too many compile requests"
// @Failure      502 {object} compileErrorResponse "Execution service unavailable"
// @Router       /api/compile [post]
func (h *Handler) CompileHandler(w http.ResponseWriter, r *http.Request) {
	if h.quota != nil {
		decision, err := h.quota.Take(r.Context(), h.quota.Source(r))
		if err != nil {
			h.logger.Error(logging.Redis, logging.RateLimiting, "compile quota unavailable", map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			})
		}
		if !decision.Allowed {
			json.WriteRateLimitError(w, decision.RetryAfterSeconds())
			return
		}
	}

	var req compileRequest
	if err := json.Read(r, &req); err != nil {
		if json.StatusFor(err) == http.StatusInternalServerError {
			// malformed JSON
			json.WriteBadRequestError(w, err.Error())
			return
		}
		json.WriteDomainError(w, err)
		return
	}

	lang, err := domain.ParseLanguage(req.Language)
	if err != nil {
		json.WriteBadRequestError(w, "language must be one of python3, java, cpp, c")
		return
	}

	res, err := h.compiler.Compile(r.Context(), domain.CompileRequest{Code: req.Code, Language: lang})
	if err != nil {
		var compileErr *domain.CompileError
		if errors.As(err, &compileErr) {
			status := compileErr.StatusCode
			if status < http.StatusBadRequest {
				status = http.StatusBadGateway
			}
			json.Write(w, status, compileErrorResponse{Error: compileErr.Error()})
			return
		}

		h.logger.Error(logging.Compiler, logging.ExternalService, "compile failed", map[logging.ExtraKey]any{
			"language":           lang.String(),
			logging.ErrorMessage: err.Error(),
		})
		json.Write(w, http.StatusBadGateway, compileErrorResponse{Error: domain.DefaultCompileError})
		return
	}

	json.Write(w, http.StatusOK, compileResponse{Output: res.Output})
}
