package web

func (s *HTTPServer) routes() {
	g := s.echo.Group("/admin")

	g.GET("/login", s.loginPage)
	g.POST("/login", s.login)
	g.POST("/api/token", s.issueToken, contentTypeJSON)

	g.POST("/logout", s.logout)
	g.GET("", s.index, s.requireStaff)
	g.GET("/:app/:model", s.changeList, s.requireStaff)
	g.POST("/:app/:model/add", s.add, s.requireStaff, contentTypeJSON)
	g.GET("/:app/:model/:id/change", s.detail, s.requireStaff)
	g.POST("/:app/:model/:id/change", s.change, s.requireStaff, contentTypeJSON)
	g.POST("/:app/:model/:id/password", s.setPassword, s.requireStaff, contentTypeJSON)
	g.POST("/:app/:model/:id/delete", s.delete, s.requireStaff, contentTypeJSON)
	g.POST("/:app/:model/:id/email", s.emailUser, s.requireStaff, contentTypeJSON)
}
