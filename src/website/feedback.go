package website

import "github.com/newsdesk-cms/newsdesk/src/email"

func Feedback(c *RequestContext) ResponseData {
	var body struct {
		Email    string `json:"email"`
		Location string `json:"location"`
		Content  string `json:"content"`
	}
	if err := c.ReadJson(&body); err != nil {
		return c.ErrorResponse(err)
	}

	err := c.App.Mailer.SendFeedback(c, email.Feedback{
		From:     body.Email,
		Location: body.Location,
		Content:  body.Content,
	})
	if err != nil {
		return c.ErrorResponse(err)
	}
	return c.Message("Thanks for your feedback!")
}
