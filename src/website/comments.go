package website

func ArticleComments(c *RequestContext) ResponseData {
	articleID, err := c.PathID("newsid")
	if err != nil {
		return c.ErrorResponse(err)
	}
	cms, err := c.App.Comments.List(c, articleID)
	if err != nil {
		return c.ErrorResponse(err)
	}
	return c.Ok(commentViews(cms))
}

func ArticleCommentThread(c *RequestContext) ResponseData {
	articleID, err := c.PathID("newsid")
	if err != nil {
		return c.ErrorResponse(err)
	}
	tree, err := c.App.Comments.Thread(c, articleID)
	if err != nil {
		return c.ErrorResponse(err)
	}
	return c.Ok(commentTreeView(tree))
}

func CommentCreate(c *RequestContext) ResponseData {
	var body struct {
		NewsID   int    `json:"newsId"`
		Content  string `json:"content"`
		ParentID *int   `json:"parentId"`
	}
	if err := c.ReadJson(&body); err != nil {
		return c.ErrorResponse(err)
	}
	cm, err := c.App.Comments.Create(c, c.Actor(), body.NewsID, body.Content, body.ParentID)
	if err != nil {
		return c.ErrorResponse(err)
	}
	return c.Created(commentView(cm))
}

func CommentUpdate(c *RequestContext) ResponseData {
	id, err := c.PathID("id")
	if err != nil {
		return c.ErrorResponse(err)
	}
	var body struct {
		Content string `json:"content"`
	}
	if err := c.ReadJson(&body); err != nil {
		return c.ErrorResponse(err)
	}
	cm, err := c.App.Comments.Update(c, c.Actor(), id, body.Content)
	if err != nil {
		return c.ErrorResponse(err)
	}
	return c.Ok(commentView(cm))
}

func CommentDelete(c *RequestContext) ResponseData {
	id, err := c.PathID("id")
	if err != nil {
		return c.ErrorResponse(err)
	}
	if err := c.App.Comments.Delete(c, c.Actor(), id); err != nil {
		return c.ErrorResponse(err)
	}
	return c.Message("Comment deleted")
}

func CommentApprove(c *RequestContext) ResponseData {
	id, err := c.PathID("id")
	if err != nil {
		return c.ErrorResponse(err)
	}
	cm, err := c.App.Comments.Approve(c, c.Actor(), id)
	if err != nil {
		return c.ErrorResponse(err)
	}
	return c.Ok(commentView(cm))
}
