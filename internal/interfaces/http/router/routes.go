package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(v1 *gin.RouterGroup, h *Handlers) {
	// 活动记录
	activities := v1.Group("/activities")
	{
		activities.GET("", h.Activity.ListActivities)
		activities.POST("", h.Activity.CreateActivity)
		activities.GET("/:id", h.Activity.GetActivity)
		activities.DELETE("/:id", h.Activity.DeleteActivity)
	}

	// 短链接
	shortlinks := v1.Group("/shortlinks")
	{
		shortlinks.GET("", h.Shortlink.ListShortlinks)
		shortlinks.POST("", h.Shortlink.CreateShortlink)
		shortlinks.GET("/:id", h.Shortlink.GetShortlink)
		shortlinks.DELETE("/:id", h.Shortlink.DeleteShortlink)
	}
	v1.GET("/r/:slug", h.Shortlink.ResolveShortlink)

	// 插件事件
	events := v1.Group("/plugin-events")
	{
		events.GET("", h.PluginEvent.ListPluginEvents)
		events.POST("", h.PluginEvent.RecordPluginEvent)
		events.GET("/:id", h.PluginEvent.GetPluginEvent)
		events.DELETE("/:id", h.PluginEvent.DeletePluginEvent)
	}
}
