package hxtree

import (
	"context"
	"html"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// Notification types.
const (
	NotificationHumanized = "humanized"
	NotificationWarning   = "warning"
	NotificationError     = "error"
	NotificationTray      = "tray"
)

// Notification is a one-time message shown by the client on top of a
// window. It is painted with the next window repaint and then discarded.
type Notification struct {
	Type        string
	Caption     string
	Description string
}

// ShowNotification queues a notification of the given type.
//
//	w.ShowNotification(hxtree.NotificationWarning, "Saved", "with warnings")
func (w *Window) ShowNotification(typ, caption, description string) {
	w.notifications = append(w.notifications, Notification{
		Type:        typ,
		Caption:     caption,
		Description: description,
	})
	w.RequestRepaint()
}

// PendingNotifications returns the notifications not yet painted.
func (w *Window) PendingNotifications() []Notification {
	out := make([]Notification, len(w.notifications))
	copy(out, w.notifications)
	return out
}

func paintNotifications(t PaintTarget, ns []Notification) error {
	if err := t.StartTag("notifications"); err != nil {
		return err
	}
	for _, n := range ns {
		if err := t.StartTag("notification"); err != nil {
			return err
		}
		if err := t.AddAttribute("type", n.Type); err != nil {
			return err
		}
		if err := t.AddAttribute("caption", n.Caption); err != nil {
			return err
		}
		if n.Description != "" {
			if err := t.AddText(n.Description); err != nil {
				return err
			}
		}
		if err := t.EndTag("notification"); err != nil {
			return err
		}
	}
	return t.EndTag("notifications")
}

// NotificationContainer returns the element the client renderer appends
// notification toasts to. Include it once per page, near the end of body.
func NotificationContainer() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<div id="hx-notifications" class="notification-container"></div>`)
		return err
	})
}

// RenderNotifications renders ns as toasts for clients without the
// renderer script.
func RenderNotifications(ns []Notification) string {
	if len(ns) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(`<div id="hx-notifications">`)
	for _, n := range ns {
		sb.WriteString(`<div class="notification notification-`)
		sb.WriteString(html.EscapeString(n.Type))
		sb.WriteString(`"><strong>`)
		sb.WriteString(html.EscapeString(n.Caption))
		sb.WriteString(`</strong>`)
		if n.Description != "" {
			sb.WriteString(` `)
			sb.WriteString(html.EscapeString(n.Description))
		}
		sb.WriteString(`</div>`)
	}
	sb.WriteString(`</div>`)
	return sb.String()
}
