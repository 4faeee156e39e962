package http

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/a-h/templ"

	"github.com/mmuslimabdulj/persona-chat/internal/persona"
)

// statusPage renders a small overview of the service: who can be chatted with and what an ad is worth
func statusPage(chars []persona.Character, adSeconds, adBonus, clients int) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>Persona Chat</title></head><body><main>`); err != nil {
			return err
		}
		fmt.Fprintf(w, `<h1>Persona Chat</h1><p>%d live connections. Watch an ad for %d seconds to earn %d credits.</p>`,
			clients, adSeconds, adBonus)

		io.WriteString(w, `<ul>`)
		for _, ch := range chars {
			fmt.Fprintf(w, `<li><strong>%s</strong>`, templ.EscapeString(ch.Name))
			if ch.Series != "" {
				fmt.Fprintf(w, ` <em>%s</em>`, templ.EscapeString(ch.Series))
			}
			if ch.Description != "" {
				fmt.Fprintf(w, `<p>%s</p>`, templ.EscapeString(ch.Description))
			}
			io.WriteString(w, `</li>`)
		}
		_, err := io.WriteString(w, `</ul></main></body></html>`)
		return err
	})
}

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	rules := h.Ads.Rules()
	page := statusPage(h.Chats.Catalog().All(), rules.MinWatchSeconds, rules.BonusCredits, h.Router.ClientCount())
	templ.Handler(page).ServeHTTP(w, r)
}
