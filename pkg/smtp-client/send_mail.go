package smtp_client

import (
	"log/slog"

	"github.com/knadh/smtppool"
)

func (sc *SmtpClients) SendMail(
	to []string,
	subject string,
	htmlContent string,
	overrides *HeaderOverrides,
) error {
	sc.mu.Lock()
	sc.counter += 1
	index := int(sc.counter % uint64(len(sc.connectionPool)))
	selectedPool := sc.connectionPool[index]
	server := sc.poolServers[index]
	sc.mu.Unlock()

	h := resolveHeaders(sc.servers, overrides)
	err := selectedPool.Send(smtppool.Email{
		To:      to,
		From:    h.From,
		Sender:  h.Sender,
		ReplyTo: h.ReplyTo,
		Subject: subject,
		HTML:    []byte(htmlContent),
	})
	if err == nil {
		return nil
	}

	// close and try to reconnect
	slog.Error("error when trying to send email", slog.String("error", err.Error()), slog.String("server", server.Host))

	pool, errReconnect := connectToPool(server)
	if errReconnect != nil {
		slog.Error("cannot reconnect pool", slog.String("error", errReconnect.Error()), slog.String("server", server.Host))
		return err
	}
	slog.Info("reconnected to pool", slog.String("server", server.Host))

	sc.mu.Lock()
	old := sc.connectionPool[index]
	sc.connectionPool[index] = pool
	sc.mu.Unlock()
	old.Close()
	return err
}
