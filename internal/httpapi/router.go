package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/storage"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/usecase"
)

// RouterDeps are the collaborators of the HTTP surface.
type RouterDeps struct {
	Service        *usecase.Service
	Verifier       *TokenVerifier
	Members        storage.MemberDirectory
	Logger         *zap.Logger
	RequestTimeout time.Duration
}

// NewRouter wires every route. Routes stay free of business logic.
func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(AccessLog(deps.Logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h := Handlers{Service: deps.Service}

	v1 := r.Group("/v1")
	v1.Use(Timeout(deps.RequestTimeout), RequireCaller(deps.Verifier, deps.Members))

	lists := v1.Group("/call-lists")
	{
		lists.POST("", h.CreateCallList)
		lists.GET("", h.ListCallLists)
		lists.GET("/:id", h.GetCallList)
		lists.PATCH("/:id", h.UpdateCallList)
		lists.POST("/:id/archive", h.ArchiveCallList)
		lists.POST("/:id/items", h.AddItems)
		lists.GET("/:id/items", h.ListItems)
		lists.POST("/:id/items/remove", h.RemoveItems)
		lists.GET("/:id/call-logs", h.ListCallLogsByCallList)
	}

	items := v1.Group("/items")
	{
		items.POST("/assign", h.Assign)
		items.POST("/unassign", h.Unassign)
		items.GET("/:id", h.GetItem)
		items.PATCH("/:id", h.UpdateItem)
		items.GET("/:id/latest-log", h.LatestLog)
	}

	logs := v1.Group("/call-logs")
	{
		logs.POST("", h.CreateCallLog)
		logs.GET("", h.ListCallLogs)
		logs.GET("/:id", h.GetCallLog)
		logs.PATCH("/:id", h.UpdateCallLog)
	}

	v1.GET("/students/:id/call-logs", h.ListCallLogsByStudent)

	followups := v1.Group("/followups")
	{
		followups.POST("", h.CreateFollowup)
		followups.GET("", h.ListFollowups)
		followups.GET("/:id", h.GetFollowup)
		followups.PATCH("/:id", h.UpdateFollowup)
		followups.DELETE("/:id", h.DeleteFollowup)
		followups.GET("/:id/call-context", h.GetFollowupCallContext)
		followups.POST("/:id/complete", h.CompleteFollowup)
	}

	v1.GET("/my-calls", h.ListMyCalls)
	v1.GET("/my-calls/stats", h.MyCallsStats)

	return r
}
