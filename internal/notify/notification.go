// Package notify delivers protocol events to external channels.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Notification kinds, also used as AMQP routing keys.
const (
	KindProtocolCreated = "protocol.created"
	KindProtocolStatus  = "protocol.status"
	KindSLAOverdue      = "protocol.sla_overdue"
	KindPhotosUploaded  = "protocol.photos"
)

// Notification describes something that happened to a protocol.
type Notification struct {
	Kind       string    `json:"kind"`
	ProtocolID string    `json:"protocolId"`
	Number     string    `json:"number"`
	UnitCode   string    `json:"unitCode"`
	PdvName    string    `json:"pdvName,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Status     string    `json:"status,omitempty"`
	Actor      string    `json:"actor,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	At         time.Time `json:"at"`
}

// Sink is one delivery channel.
type Sink interface {
	Name() string
	Notify(ctx context.Context, n Notification) error
}

var titles = map[string]string{
	KindProtocolCreated: "Novo protocolo",
	KindProtocolStatus:  "Protocolo atualizado",
	KindSLAOverdue:      "Protocolo em atraso",
	KindPhotosUploaded:  "Fotos anexadas",
}

// FormatWhatsApp renders n as a WhatsApp message: bold title, one fact per line.
func FormatWhatsApp(n Notification) string {
	title, ok := titles[n.Kind]
	if !ok {
		title = n.Kind
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*%s* %s\n", title, n.Number)
	line := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&b, "*%s:* %s\n", label, value)
		}
	}
	line("Unidade", n.UnitCode)
	line("PDV", n.PdvName)
	line("Motivo", n.Reason)
	line("Status", n.Status)
	line("Responsável", n.Actor)
	line("Detalhe", n.Detail)
	if !n.At.IsZero() {
		line("Data", n.At.Format("02/01/2006 15:04"))
	}
	return strings.TrimRight(b.String(), "\n")
}
