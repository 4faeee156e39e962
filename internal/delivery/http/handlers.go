package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/mmuslimabdulj/persona-chat/internal/adsession"
	"github.com/mmuslimabdulj/persona-chat/internal/auth"
	"github.com/mmuslimabdulj/persona-chat/internal/delivery/ws"
	"github.com/mmuslimabdulj/persona-chat/internal/ledger"
	"github.com/mmuslimabdulj/persona-chat/internal/likes"
	"github.com/mmuslimabdulj/persona-chat/internal/middleware"
	"github.com/mmuslimabdulj/persona-chat/internal/usecase"
)

// Deps are the services behind the HTTP surface
type Deps struct {
	Chats    *usecase.ChatService
	Ledger   *ledger.Ledger
	Ads      *adsession.Machine
	Likes    *likes.Store
	Router   *ws.Router
	Verifier *auth.Verifier
	Origins  *middleware.OriginPolicy

	InternalToken  string
	MaxMessageSize int64
	// per-connection budget for inbound socket messages
	MessageRate  rate.Limit
	MessageBurst int

	Log *slog.Logger
}

type Handler struct {
	Deps
	upgrader websocket.Upgrader
	validate *validator.Validate
	log      *slog.Logger
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		Deps: d,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     d.Origins.CheckOrigin,
		},
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      d.Log,
	}
}

// Routes registers every endpoint. api and socket wrap the API and websocket routes (rate limits).
func (h *Handler) Routes(api, socket func(http.Handler) http.Handler) http.Handler {
	mux := http.NewServeMux()
	handle := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, api(fn))
	}

	mux.HandleFunc("GET /{$}", h.HandleStatus)
	mux.HandleFunc("GET /healthz", h.HandleHealth)

	handle("POST /api/interface/guest/init", h.HandleGuestInit)
	handle("GET /api/interface/usage/status", h.HandleUsageStatus)
	handle("POST /api/interface/ad/start", h.HandleAdStart)
	handle("POST /api/interface/ad/complete", h.HandleAdComplete)
	handle("POST /api/internal/users/registered", h.HandleUserRegistered)

	handle("GET /api/interface/characters", h.HandleCharacters)
	handle("POST /api/interface/chat/create", h.HandleCreateChat)
	handle("POST /api/interface/chat/create_by_id", h.HandleCreateByID)
	handle("POST /api/interface/chat/create_group", h.HandleCreateGroup)
	handle("POST /api/interface/chat/send", h.HandleSend)
	handle("GET /api/interface/my/chats", h.HandleMyChats)
	handle("GET /api/interface/my/chats/{id}/messages", h.HandleChatMessages)
	handle("POST /api/interface/my/chats/{id}/leave", h.HandleLeave)

	handle("GET /api/interface/likes/status", h.HandleLikesStatus)
	handle("POST /api/interface/likes/toggle", h.HandleLikeToggle)

	handle("GET /api/players", h.HandlePlayers)
	handle("GET /api/chats", h.HandleChats)
	handle("POST /api/chats/private", h.HandleCreatePrivate)
	handle("POST /api/chats/{id}/hold", h.HandleHold)

	mux.Handle("GET /ws/{client_id}", socket(http.HandlerFunc(h.HandleWebSocket)))
	return mux
}

// caller identifies the requester. A bearer token that fails verification is treated as absent.
func (h *Handler) caller(r *http.Request, bodyAnonID string) usecase.Caller {
	c := usecase.Caller{AnonID: strings.TrimSpace(bodyAnonID)}
	if c.AnonID == "" {
		c.AnonID = strings.TrimSpace(r.Header.Get("X-Anon-Id"))
	}

	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || h.Verifier == nil {
		return c
	}
	user, err := h.Verifier.Verify(strings.TrimSpace(token))
	if err != nil {
		h.log.Debug("ignoring bearer token", "error", err)
		return c
	}
	c.UserID = user.ID
	c.UserName = user.Name
	return c
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"clients": h.Router.ClientCount(),
	})
}

// HandleWebSocket upgrades to a live channel keyed by the client id in the path
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	clientID := r.PathValue("client_id")
	if clientID == "" {
		http.Error(w, "client id required", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	var limiter *rate.Limiter
	if h.MessageRate > 0 {
		limiter = rate.NewLimiter(h.MessageRate, h.MessageBurst)
	}
	client := ws.NewClient(h.Router, conn, clientID, limiter)
	h.Router.Connect(client)
	h.Router.SendTo(clientID, h.Chats.Greeting(clientID))

	// the connection outlives this request
	ctx := context.WithoutCancel(r.Context())
	go client.WritePump()
	go client.ReadPump(ctx, h.Chats, h.MaxMessageSize)
}
