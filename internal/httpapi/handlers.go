package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/model"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/usecase"
)

// Handlers maps HTTP requests onto service operations. Keep them thin:
// bind input, call the service, write JSON.
type Handlers struct {
	Service *usecase.Service
}

func bindPage(c *gin.Context) (model.Page, bool) {
	var page model.Page
	if err := c.ShouldBindQuery(&page); err != nil {
		badRequest(c, err)
		return page, false
	}
	return page, true
}

// --- Call lists --- //

func (h Handlers) CreateCallList(c *gin.Context) {
	var in model.CreateCallListInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	list, err := h.Service.CreateCallList(c.Request.Context(), in)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, list)
}

func (h Handlers) UpdateCallList(c *gin.Context) {
	var in model.UpdateCallListInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	list, err := h.Service.UpdateCallList(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h Handlers) ArchiveCallList(c *gin.Context) {
	list, err := h.Service.ArchiveCallList(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h Handlers) GetCallList(c *gin.Context) {
	list, err := h.Service.GetCallList(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h Handlers) ListCallLists(c *gin.Context) {
	var filter model.CallListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		badRequest(c, err)
		return
	}
	page, ok := bindPage(c)
	if !ok {
		return
	}
	res, err := h.Service.ListCallLists(c.Request.Context(), filter, page)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// --- Items --- //

func (h Handlers) AddItems(c *gin.Context) {
	var in model.AddItemsInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.Service.AddItems(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h Handlers) RemoveItems(c *gin.Context) {
	var in model.RemoveItemsInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	removed, err := h.Service.RemoveItems(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

func (h Handlers) ListItems(c *gin.Context) {
	var filter model.ItemFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		badRequest(c, err)
		return
	}
	page, ok := bindPage(c)
	if !ok {
		return
	}
	res, err := h.Service.ListItems(c.Request.Context(), c.Param("id"), filter, page)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h Handlers) GetItem(c *gin.Context) {
	item, err := h.Service.GetItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h Handlers) UpdateItem(c *gin.Context) {
	var in model.UpdateItemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	item, err := h.Service.UpdateItem(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h Handlers) LatestLog(c *gin.Context) {
	log, err := h.Service.LatestLogFor(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	if log == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, log)
}

func (h Handlers) Assign(c *gin.Context) {
	var in model.AssignInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.Service.Assign(c.Request.Context(), in)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h Handlers) Unassign(c *gin.Context) {
	var in model.UnassignInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.Service.Unassign(c.Request.Context(), in)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// --- Call logs --- //

func (h Handlers) CreateCallLog(c *gin.Context) {
	var in model.CreateCallLogInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	detail, err := h.Service.CreateCallLog(c.Request.Context(), in)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, detail)
}

func (h Handlers) UpdateCallLog(c *gin.Context) {
	var in model.UpdateCallLogInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	log, err := h.Service.UpdateCallLog(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, log)
}

func (h Handlers) GetCallLog(c *gin.Context) {
	detail, err := h.Service.GetCallLog(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h Handlers) ListCallLogs(c *gin.Context) {
	var filter model.CallLogFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		badRequest(c, err)
		return
	}
	page, ok := bindPage(c)
	if !ok {
		return
	}
	res, err := h.Service.ListCallLogs(c.Request.Context(), filter, page)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h Handlers) ListCallLogsByStudent(c *gin.Context) {
	page, ok := bindPage(c)
	if !ok {
		return
	}
	res, err := h.Service.ListCallLogsByStudent(c.Request.Context(), c.Param("id"), page)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h Handlers) ListCallLogsByCallList(c *gin.Context) {
	page, ok := bindPage(c)
	if !ok {
		return
	}
	res, err := h.Service.ListCallLogsByCallList(c.Request.Context(), c.Param("id"), page)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// --- Follow-ups --- //

func (h Handlers) CreateFollowup(c *gin.Context) {
	var in model.CreateFollowupInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	f, err := h.Service.CreateFollowup(c.Request.Context(), in)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, f)
}

func (h Handlers) UpdateFollowup(c *gin.Context) {
	var in model.UpdateFollowupInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	f, err := h.Service.UpdateFollowup(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

func (h Handlers) DeleteFollowup(c *gin.Context) {
	if err := h.Service.DeleteFollowup(c.Request.Context(), c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h Handlers) GetFollowup(c *gin.Context) {
	f, err := h.Service.GetFollowup(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

func (h Handlers) ListFollowups(c *gin.Context) {
	var filter model.FollowupFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		badRequest(c, err)
		return
	}
	page, ok := bindPage(c)
	if !ok {
		return
	}
	res, err := h.Service.ListFollowups(c.Request.Context(), filter, page)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h Handlers) GetFollowupCallContext(c *gin.Context) {
	res, err := h.Service.GetFollowupCallContext(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h Handlers) CompleteFollowup(c *gin.Context) {
	var in model.CompleteFollowupInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	detail, err := h.Service.CompleteFollowupCallLog(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, detail)
}

// --- My calls --- //

func (h Handlers) ListMyCalls(c *gin.Context) {
	var filter model.MyCallsFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		badRequest(c, err)
		return
	}
	page, ok := bindPage(c)
	if !ok {
		return
	}
	res, err := h.Service.ListMyCalls(c.Request.Context(), filter, page)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h Handlers) MyCallsStats(c *gin.Context) {
	stats, err := h.Service.GetMyCallsStats(c.Request.Context(), c.Query("call_list_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
