package smtp_client

import (
	"crypto/tls"
	"errors"
	"log/slog"
	"net/smtp"
	"strconv"
	"sync"
	"time"

	"github.com/knadh/smtppool"
)

var ErrNoServers = errors.New("no smtp server connection in the pool")

// SmtpClients keeps one smtppool per configured server and sends round robin.
type SmtpClients struct {
	servers        SmtpServerList
	mu             sync.Mutex
	connectionPool []*smtppool.Pool
	poolServers    []SmtpServer
	counter        uint64
}

func NewSmtpClients(config SmtpServerList) (*SmtpClients, error) {
	sc := &SmtpClients{
		servers: config,
	}
	sc.initConnectionPool()
	if len(sc.connectionPool) < 1 {
		return nil, ErrNoServers
	}
	return sc, nil
}

func (sc *SmtpClients) initConnectionPool() {
	for _, server := range sc.servers.Servers {
		pool, err := connectToPool(server)
		if err != nil {
			slog.Error("error setting up connection pool", slog.String("error", err.Error()), slog.String("server", server.Address()))
			continue
		}
		sc.connectionPool = append(sc.connectionPool, pool)
		sc.poolServers = append(sc.poolServers, server)
	}
}

func (sc *SmtpClients) Close() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	for _, p := range sc.connectionPool {
		p.Close()
	}
}

func smtpAuth(server SmtpServer) smtp.Auth {
	if server.AuthData.Username == "" && server.AuthData.Password == "" {
		return nil
	}
	return smtp.PlainAuth(
		"",
		server.AuthData.Username,
		server.AuthData.Password,
		server.Host,
	)
}

func connectToPool(server SmtpServer) (*smtppool.Pool, error) {
	port, err := strconv.Atoi(server.Port)
	if err != nil {
		return nil, err
	}

	connections := server.Connections
	if connections < 1 {
		connections = 1
	}

	return smtppool.New(smtppool.Opt{
		Host:            server.Host,
		Port:            port,
		MaxConns:        connections,
		IdleTimeout:     time.Duration(server.SendTimeout) * time.Second,
		PoolWaitTimeout: time.Duration(server.SendTimeout) * time.Second,
		TLSConfig: &tls.Config{
			InsecureSkipVerify: server.InsecureSkipVerify,
			ServerName:         server.Host,
		},
		Auth: smtpAuth(server),
	})
}
