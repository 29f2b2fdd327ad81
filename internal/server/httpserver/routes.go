package httpserver

import (
	"net/http"

	"github.com/etitcombe/logifymw"
)

func (s *Server) registerRoutes() {
	mux := http.NewServeMux()

	mux.Handle("GET /{$}", s.authenticate(http.HandlerFunc(s.handleLanding)))
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /register", s.handleRegister)
	mux.Handle("POST /login", s.limitLogin(http.HandlerFunc(s.handleLogin)))
	mux.Handle("POST /logout", s.authenticate(s.requireUser(s.handleLogout)))
	mux.HandleFunc("POST /reset-password", s.handleResetPassword)

	mux.Handle("GET /diary/dashboard", s.authenticate(s.requireUser(s.handleDashboard)))
	mux.Handle("POST /diary/create", s.authenticate(s.requireUser(s.handleCreateDiary)))
	mux.Handle("GET /diary/view/{id}", s.authenticate(s.requireUser(s.handleViewDiary)))
	mux.Handle("GET /diary/edit/{id}", s.authenticate(s.requireUser(s.handleEditDiaryForm)))
	mux.Handle("POST /diary/edit/{id}", s.authenticate(s.requireUser(s.handleUpdateDiary)))
	mux.Handle("POST /diary/delete/{id}", s.authenticate(s.requireUser(s.handleDeleteDiary)))
	mux.Handle("POST /diary/export", s.authenticate(s.requireUser(s.handleExport)))
	mux.Handle("GET /diary/exports", s.authenticate(s.requireUser(s.handleListExports)))

	s.router = s.recoverPanic(s.requestID(logifymw.LogIt2(s.accessLog, mux)))
}
