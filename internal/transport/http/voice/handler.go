package voice

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"voiceprint-server-go/internal/domain/audit"
	"voiceprint-server-go/internal/domain/command"
	"voiceprint-server-go/internal/domain/voice/aggregate"
	"voiceprint-server-go/internal/domain/voice/authn"
	"voiceprint-server-go/internal/domain/voice/feature"
	"voiceprint-server-go/internal/domain/voice/service"
	"voiceprint-server-go/internal/domain/voice/store"
	"voiceprint-server-go/internal/platform/errors"
	"voiceprint-server-go/internal/platform/logging"
	"voiceprint-server-go/internal/platform/observability"
	httptransport "voiceprint-server-go/internal/transport/http"
)

// DefaultMaxUploadBytes 单个音频上传上限
const DefaultMaxUploadBytes = 10 << 20

// Deps 声纹接口依赖
type Deps struct {
	Enrollment     *service.EnrollmentManager
	Verification   *service.VerificationEngine
	Auth           *authn.Orchestrator
	Commands       *command.Processor
	Audit          audit.Repository
	Templates      store.Store
	Logger         *logging.Logger
	MaxUploadBytes int64
}

// Handler serves the /api/voice routes.
type Handler struct {
	deps Deps
}

// NewHandler 创建声纹 HTTP 处理器
func NewHandler(deps Deps) (*Handler, error) {
	if deps.Enrollment == nil || deps.Verification == nil || deps.Auth == nil || deps.Commands == nil || deps.Audit == nil || deps.Templates == nil {
		return nil, errors.New(errors.KindBootstrap, "voice.handler", "voice handler dependencies are incomplete")
	}
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = DefaultMaxUploadBytes
	}
	return &Handler{deps: deps}, nil
}

// RegisterRoutes 注册声纹相关路由; /authenticate 与 /commands/supported 不需要令牌
func (h *Handler) RegisterRoutes(router *httptransport.Router) {
	public := router.API.Group("/voice")
	public.POST("/authenticate", h.Authenticate)
	public.GET("/commands/supported", h.SupportedCommands)

	secured := router.Secured.Group("/voice")
	secured.POST("/enroll", h.Enroll)
	secured.POST("/verify", h.Verify)
	secured.GET("/template/:userId", h.TemplateInfo)
	secured.PUT("/template/:userId", h.UpdateTemplate)
	secured.DELETE("/template/:userId", h.DeleteTemplate)
	secured.GET("/enrollments/:tenantId", h.ListEnrollments)
	secured.POST("/quality", h.Quality)
	secured.GET("/metrics/:userId", h.Metrics)
	secured.POST("/command", h.Command)
	secured.POST("/passphrase/validate", h.ValidatePassphrase)
	secured.GET("/security/:userId", h.SecurityStatus)
	secured.GET("/stats", h.Stats)

	h.deps.Logger.InfoTag("HTTP", "voice routes registered")
}

// Enroll 录入声纹
func (h *Handler) Enroll(c *gin.Context) {
	audio, ok := h.readAudio(c)
	if !ok {
		return
	}
	var opts []service.EnrollOption
	if tenant := c.PostForm("tenant_id"); tenant != "" {
		opts = append(opts, service.WithTenant(tenant))
	}

	info, err := h.deps.Enrollment.Enroll(c.Request.Context(), userParam(c, "user_id"), audio, opts...)
	if err != nil {
		httptransport.RespondDomainError(c, err)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, info, info.Message)
}

// Verify 1:1 比对
func (h *Handler) Verify(c *gin.Context) {
	audio, ok := h.readAudio(c)
	if !ok {
		return
	}
	res, err := h.deps.Verification.Verify(c.Request.Context(), userParam(c, "user_id"), audio)
	if err != nil {
		httptransport.RespondDomainError(c, err)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, res, res.Message)
}

func (h *Handler) TemplateInfo(c *gin.Context) {
	info, err := h.deps.Enrollment.Info(c.Request.Context(), c.Param("userId"))
	if err != nil {
		httptransport.RespondDomainError(c, err)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, info, "")
}

func (h *Handler) UpdateTemplate(c *gin.Context) {
	audio, ok := h.readAudio(c)
	if !ok {
		return
	}
	if err := h.deps.Enrollment.Update(c.Request.Context(), c.Param("userId"), audio); err != nil {
		httptransport.RespondDomainError(c, err)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, true, "voice template updated successfully")
}

func (h *Handler) DeleteTemplate(c *gin.Context) {
	if err := h.deps.Enrollment.Delete(c.Request.Context(), c.Param("userId")); err != nil {
		httptransport.RespondDomainError(c, err)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, true, "voice template deleted successfully")
}

func (h *Handler) ListEnrollments(c *gin.Context) {
	list, err := h.deps.Enrollment.List(c.Request.Context(), aggregate.Scope{TenantID: c.Param("tenantId")})
	if err != nil {
		httptransport.RespondDomainError(c, err)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, list, fmt.Sprintf("%d enrollments", len(list)))
}

// Quality 录音质量评估
func (h *Handler) Quality(c *gin.Context) {
	audio, ok := h.readAudio(c)
	if !ok {
		return
	}
	if len(audio) == 0 {
		httptransport.RespondDomainError(c, errors.Wrap(errors.KindValidation, "voice.quality", "audio data is required", aggregate.ErrEmptyAudio))
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, feature.Analyze(audio), "")
}

func (h *Handler) Metrics(c *gin.Context) {
	m, err := audit.Metrics(c.Request.Context(), h.deps.Audit, c.Param("userId"))
	if err != nil {
		httptransport.RespondDomainError(c, err)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, m, "")
}

// Stats 模板存储概况与各操作的耗时统计
func (h *Handler) Stats(c *gin.Context) {
	storeStats, err := h.deps.Templates.Stats(c.Request.Context())
	if err != nil {
		httptransport.RespondDomainError(c, errors.Wrap(errors.KindStorage, "voice.stats", "failed to read template store stats", err))
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, gin.H{
		"store":      storeStats,
		"operations": observability.Snapshot(""),
	}, "")
}

// Command 语音指令
func (h *Handler) Command(c *gin.Context) {
	audio, ok := h.readAudio(c)
	if !ok {
		return
	}
	outcome, err := h.deps.Commands.Process(c.Request.Context(), userParam(c, "user_id"), audio)
	if err != nil {
		httptransport.RespondDomainError(c, err)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, outcome, outcome.ResultMessage)
}

func (h *Handler) SupportedCommands(c *gin.Context) {
	httptransport.RespondSuccess(c, http.StatusOK, command.SupportedCommands(), "")
}

// Authenticate 声纹登录
func (h *Handler) Authenticate(c *gin.Context) {
	audio, ok := h.readAudio(c)
	if !ok {
		return
	}
	passphrase := optionalParam(c, "passphrase")
	scope := aggregate.Scope{TenantID: formOrQuery(c, "tenant_id")}

	res, err := h.deps.Auth.Authenticate(c.Request.Context(), scope, audio, passphrase)
	if err != nil {
		httptransport.RespondDomainError(c, err)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, res, "voice authentication successful")
}

func (h *Handler) ValidatePassphrase(c *gin.Context) {
	audio, ok := h.readAudio(c)
	if !ok {
		return
	}
	valid, err := h.deps.Auth.ValidatePassphrase(c.Request.Context(), userParam(c, "user_id"), audio, formOrQuery(c, "passphrase"))
	if err != nil {
		httptransport.RespondDomainError(c, err)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, valid, "voice passphrase validated")
}

func (h *Handler) SecurityStatus(c *gin.Context) {
	status, err := h.deps.Auth.SecurityStatus(c.Request.Context(), c.Param("userId"))
	if err != nil {
		httptransport.RespondDomainError(c, err)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, status, "")
}

// readAudio takes the multipart "audio" field, or the raw body for
// application/octet-stream. An absent upload yields empty audio so the
// domain reports it.
func (h *Handler) readAudio(c *gin.Context) ([]byte, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.deps.MaxUploadBytes)

	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(c.ContentType(), "application/octet-stream") {
		data, err = io.ReadAll(c.Request.Body)
	} else {
		data, err = readFormFile(c, "audio")
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httptransport.RespondError(c, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("audio upload exceeds %d bytes", tooLarge.Limit), nil)
			return nil, false
		}
		httptransport.RespondError(c, http.StatusBadRequest, "failed to read audio upload", nil)
		return nil, false
	}
	return data, true
}

func readFormFile(c *gin.Context, field string) ([]byte, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// userParam prefers the explicit form/query value and falls back to the
// authenticated user.
func userParam(c *gin.Context, key string) string {
	if v := formOrQuery(c, key); v != "" {
		return v
	}
	return httptransport.AuthenticatedUser(c)
}

// optionalParam is nil when key is absent from both form and query, so an
// explicitly empty value stays distinguishable.
func optionalParam(c *gin.Context, key string) *string {
	if v, ok := c.GetPostForm(key); ok {
		return &v
	}
	if v, ok := c.GetQuery(key); ok {
		return &v
	}
	return nil
}

func formOrQuery(c *gin.Context, key string) string {
	if v := c.PostForm(key); v != "" {
		return v
	}
	return c.Query(key)
}
