package website

import (
	"github.com/newsdesk-cms/newsdesk/src/categories"
	"github.com/newsdesk-cms/newsdesk/src/images"
)

type categoryBody struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Images      []string `json:"images"`
}

func (b categoryBody) input() categories.Input {
	return categories.Input{Name: b.Name, Description: b.Description, Images: b.Images}
}

func CategoryList(c *RequestContext) ResponseData {
	cats, err := c.App.Categories.List(c)
	if err != nil {
		return c.ErrorResponse(err)
	}
	return c.Ok(categoryViews(cats))
}

func CategoryGet(c *RequestContext) ResponseData {
	id, err := c.PathID("id")
	if err != nil {
		return c.ErrorResponse(err)
	}
	cat, err := c.App.Categories.Get(c, id)
	if err != nil {
		return c.ErrorResponse(err)
	}
	return c.Ok(categoryView(cat))
}

func CategoryCreate(c *RequestContext) ResponseData {
	var body categoryBody
	if err := c.ReadJson(&body); err != nil {
		return c.ErrorResponse(err)
	}
	cat, err := c.App.Categories.Create(c, c.Actor(), body.input())
	if err != nil {
		return c.ErrorResponse(err)
	}
	return c.Created(categoryView(cat))
}

func CategoryUpdate(c *RequestContext) ResponseData {
	id, err := c.PathID("id")
	if err != nil {
		return c.ErrorResponse(err)
	}
	var body categoryBody
	if err := c.ReadJson(&body); err != nil {
		return c.ErrorResponse(err)
	}
	cat, err := c.App.Categories.Update(c, c.Actor(), id, body.input())
	if err != nil {
		return c.ErrorResponse(err)
	}
	return c.Ok(categoryView(cat))
}

func CategoryDelete(c *RequestContext) ResponseData {
	id, err := c.PathID("id")
	if err != nil {
		return c.ErrorResponse(err)
	}
	if err := c.App.Categories.Delete(c, c.Actor(), id); err != nil {
		return c.ErrorResponse(err)
	}
	return c.Message("Category deleted")
}

func CategoryUpload(c *RequestContext) ResponseData {
	return uploadImage(c, images.FolderCategories)
}
