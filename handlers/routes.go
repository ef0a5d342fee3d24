package handlers

import (
	"net/http"

	"workhub-manager/server/middleware"
	"workhub-manager/server/services"
	"workhub-manager/server/utils"

	"github.com/gorilla/mux"
)

type RouterConfig struct {
	Auth          *services.AuthService
	Users         *services.UserService
	Tasks         *services.TaskService
	Notifications *services.NotificationService
	Dashboard     *services.DashboardService
	Uploader      *utils.Uploader

	CORSOrigin string
	Production bool
	// AuthLimiter throttles login and registration. Nil disables it.
	AuthLimiter func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	login := NewLoginHandler(cfg.Auth, cfg.Production)
	users := NewUserHandler(cfg.Users, cfg.Notifications)
	tasks := NewTaskHandler(cfg.Tasks, cfg.Dashboard, cfg.Uploader)

	protect := middleware.ProtectRoute(cfg.Auth)
	protected := func(h http.HandlerFunc) http.Handler {
		return protect(h)
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return protect(middleware.IsAdminRoute(h))
	}
	limited := func(h http.Handler) http.Handler {
		if cfg.AuthLimiter == nil {
			return h
		}
		return cfg.AuthLimiter(h)
	}

	router := mux.NewRouter()

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusOK, "WorkHub server is running")
	}).Methods(http.MethodGet)

	user := router.PathPrefix("/api/user").Subrouter()
	user.Handle("/register", limited(middleware.OptionalIdentity(cfg.Auth)(http.HandlerFunc(login.Register)))).Methods(http.MethodPost)
	user.Handle("/login", limited(http.HandlerFunc(login.Login))).Methods(http.MethodPost)
	user.HandleFunc("/logout", login.Logout).Methods(http.MethodPost)
	user.Handle("/get-team", protected(users.GetTeam)).Methods(http.MethodGet)
	user.Handle("/notifications", protected(users.GetNotifications)).Methods(http.MethodGet)
	user.Handle("/read-noti", protected(users.MarkNotificationRead)).Methods(http.MethodPut)
	user.Handle("/profile", protected(users.UpdateProfile)).Methods(http.MethodPut)
	user.Handle("/change-password", protected(login.ChangePassword)).Methods(http.MethodPut)
	user.Handle("/{id}", admin(users.SetActive)).Methods(http.MethodPut)
	user.Handle("/{id}", admin(users.DeleteUser)).Methods(http.MethodDelete)

	task := router.PathPrefix("/api/task").Subrouter()
	task.Handle("/create", admin(tasks.CreateTask)).Methods(http.MethodPost)
	task.Handle("/duplicate/{id}", admin(tasks.DuplicateTask)).Methods(http.MethodPost)
	task.Handle("/activity/{id}", protected(tasks.PostActivity)).Methods(http.MethodPost)
	task.Handle("/dashboard", protected(tasks.DashboardStatistics)).Methods(http.MethodGet)
	task.Handle("", protected(tasks.ListTasks)).Methods(http.MethodGet)
	task.Handle("/", protected(tasks.ListTasks)).Methods(http.MethodGet)
	task.Handle("/{id}", protected(tasks.GetTask)).Methods(http.MethodGet)
	task.Handle("/create-subtask/{id}", admin(tasks.CreateSubTask)).Methods(http.MethodPut)
	task.Handle("/update/{id}", admin(tasks.UpdateTask)).Methods(http.MethodPut)
	task.Handle("/changestate/{id}/stage", protected(tasks.ChangeStage)).Methods(http.MethodPut)
	task.Handle("/{id}", admin(tasks.TrashTask)).Methods(http.MethodPut)
	task.Handle("/delete-restore", admin(tasks.DeleteRestoreTask)).Methods(http.MethodDelete)
	task.Handle("/delete-restore/{id}", admin(tasks.DeleteRestoreTask)).Methods(http.MethodDelete)

	if cfg.Uploader != nil && cfg.Uploader.Storage == utils.StorageDisk {
		router.PathPrefix(utils.PublicPrefix).Handler(
			http.StripPrefix(utils.PublicPrefix, http.FileServer(http.Dir(cfg.Uploader.Dir))),
		).Methods(http.MethodGet)
	}

	return middleware.Recovery(middleware.EnableCORS(cfg.CORSOrigin)(router))
}
