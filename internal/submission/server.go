package submission

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"flagrange/internal/store"
)

const (
	readTimeout  = 10 * time.Second
	writeTimeout = 5 * time.Second
	maxLineBytes = 4096
)

// Server is the TCP flag submission server. Protocol, one request per
// connection:
//
//	SUBMIT <team_token> <flag>
//	-> OK <points> | ERROR <reason>
type Server struct {
	addr      string
	validator *Validator
	logger    *slog.Logger

	mu  sync.Mutex
	lis net.Listener
	wg  sync.WaitGroup
}

// NewServer creates a submission server listening on addr.
func NewServer(addr string, validator *Validator, logger *slog.Logger) *Server {
	return &Server{
		addr:      addr,
		validator: validator,
		logger:    logger,
	}
}

// Run accepts connections until the context is cancelled, then waits for
// in-flight submissions to finish.
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.mu.Lock()
	s.lis = lis
	s.mu.Unlock()

	s.logger.Info("submission server listening", "addr", s.addr)

	go func() {
		<-ctx.Done()
		lis.Close()
	}()

	for {
		conn, err := lis.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.wg.Wait()
				return ctx.Err()
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

// Addr returns the bound listener address, for tests using port 0.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lis == nil {
		return nil
	}
	return s.lis.Addr()
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(readTimeout))

	reader := bufio.NewReaderSize(conn, maxLineBytes)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return
	}

	response := s.process(ctx, strings.TrimSpace(line), remoteIP(conn))

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	fmt.Fprintf(conn, "%s\n", response)
}

// process parses and judges one request line. The response is always a
// short machine-parsable line.
func (s *Server) process(ctx context.Context, line, sourceIP string) string {
	parts := strings.Fields(line)
	if len(parts) != 3 || !strings.EqualFold(parts[0], "SUBMIT") {
		return "ERROR invalid format, use: SUBMIT <team_token> <flag>"
	}

	result, err := s.validator.Submit(ctx, parts[1], parts[2], sourceIP)
	if err != nil {
		s.logger.Error("submission failed", "source_ip", sourceIP, "error", err)
		return "ERROR internal server error"
	}

	if result.Status == store.SubmissionAccepted {
		return fmt.Sprintf("OK %d", result.Points)
	}
	return fmt.Sprintf("ERROR %s", result.Message)
}

func remoteIP(conn net.Conn) string {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return conn.RemoteAddr().String()
	}
	return host
}
