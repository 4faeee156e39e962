package http

import (
	"net/http"

	"github.com/mmuslimabdulj/persona-chat/internal/usecase"
)

type createChatRequest struct {
	UserName         string `json:"user_name" validate:"max=64"`
	CharacterName    string `json:"character_name" validate:"required,max=64"`
	CharacterPersona string `json:"character_persona" validate:"max=4000"`
}

type createByIDRequest struct {
	UserName    string `json:"user_name" validate:"max=64"`
	CharacterID string `json:"character_id" validate:"required,max=64"`
}

type createGroupRequest struct {
	UserName     string   `json:"user_name" validate:"max=64"`
	CharacterIDs []string `json:"character_ids" validate:"required,min=1,max=8,dive,required,max=64"`
	Name         string   `json:"name" validate:"max=100"`
}

type sendRequest struct {
	ChatID      string `json:"chat_id" validate:"required,max=64"`
	Content     string `json:"content" validate:"required,max=4000"`
	SenderID    string `json:"sender_id" validate:"max=64"`
	AnonID      string `json:"anon_id" validate:"max=64"`
	CharacterID string `json:"character_id" validate:"max=64"`
}

type privateRequest struct {
	RequesterID    string `json:"requester_id" validate:"required,max=64"`
	TargetPlayerID string `json:"target_player_id" validate:"required,max=64"`
}

type holdRequest struct {
	PlayerID string `json:"player_id" validate:"required,max=64"`
	AgentID  string `json:"agent_id" validate:"required,max=64"`
}

func (h *Handler) HandleCharacters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Chats.Catalog().All())
}

func (h *Handler) HandleCreateChat(w http.ResponseWriter, r *http.Request) {
	var req createChatRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	out, err := h.Chats.CreateChat(r.Context(), req.UserName, req.CharacterName, req.CharacterPersona)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) HandleCreateByID(w http.ResponseWriter, r *http.Request) {
	var req createByIDRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	out, err := h.Chats.CreateByID(r.Context(), h.caller(r, ""), req.UserName, req.CharacterID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) HandleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	out, err := h.Chats.CreateGroup(r.Context(), req.UserName, req.CharacterIDs, req.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	out, err := h.Chats.Send(r.Context(), h.caller(r, req.AnonID), usecase.SendInput{
		ChatID:      req.ChatID,
		Content:     req.Content,
		SenderID:    req.SenderID,
		CharacterID: req.CharacterID,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) HandleMyChats(w http.ResponseWriter, r *http.Request) {
	out, err := h.Chats.MyChats(r.Context(), h.caller(r, ""))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) HandleChatMessages(w http.ResponseWriter, r *http.Request) {
	out, err := h.Chats.ChatMessages(r.Context(), h.caller(r, ""), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	status, err := h.Chats.Leave(r.Context(), h.caller(r, ""), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

func (h *Handler) HandlePlayers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Chats.Players())
}

func (h *Handler) HandleChats(w http.ResponseWriter, r *http.Request) {
	out, err := h.Chats.Chats(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) HandleCreatePrivate(w http.ResponseWriter, r *http.Request) {
	var req privateRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	out, err := h.Chats.CreatePrivate(r.Context(), req.RequesterID, req.TargetPlayerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) HandleHold(w http.ResponseWriter, r *http.Request) {
	var req holdRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.Chats.Hold(r.Context(), r.PathValue("id"), req.PlayerID, req.AgentID); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
