package session

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jgivc/rinupdate/internal/adapter/network"
	"github.com/jgivc/rinupdate/internal/common"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// Element is a node of the currently loaded page.
type Element interface {
	Text() string
	Attr(name string) (string, bool)
	FindAll(selector string) []Element
}

type HTTPClient interface {
	Get(ctx context.Context, reqURL string) (*network.Response, error)
	PostForm(ctx context.Context, reqURL string, values url.Values) (*network.Response, error)
}

// HTTPSession drives server rendered pages the way a browser would: it keeps
// the current document, follows clicked links and submits forms with the
// values typed into their fields. Scripts are not executed.
type HTTPSession struct {
	client HTTPClient
	doc    *goquery.Document
	url    *url.URL
	typed  map[*html.Node]string
	log    *slog.Logger
}

func NewHTTPSession(client HTTPClient, log *slog.Logger) *HTTPSession {
	return &HTTPSession{
		client: client,
		typed:  make(map[*html.Node]string),
		log:    log.With(slog.String("item", "HTTPSession")),
	}
}

func (s *HTTPSession) Navigate(ctx context.Context, rawURL string) error {
	target, err := s.resolve(rawURL)
	if err != nil {
		return err
	}

	resp, err := s.client.Get(ctx, target)
	if err != nil {
		return fmt.Errorf("cannot navigate to %s: %w", target, err)
	}

	return s.load(resp)
}

func (s *HTTPSession) CurrentURL() string {
	if s.url == nil {
		return ""
	}

	return s.url.String()
}

func (s *HTTPSession) FindElement(selector string) (Element, error) {
	if s.doc == nil {
		return nil, fmt.Errorf("%w: no page loaded", common.ErrNotFound)
	}

	sel := s.doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", common.ErrNotFound, selector)
	}

	return &element{sel: sel}, nil
}

// SendKeys appends text to the value of an input or textarea.
func (s *HTTPSession) SendKeys(el Element, text string) error {
	e, ok := el.(*element)
	if !ok || e.sel.Length() == 0 {
		return fmt.Errorf("cannot send keys to foreign element")
	}

	node := e.sel.Get(0)
	switch node.Data {
	case "input", "textarea":
	default:
		return fmt.Errorf("cannot send keys to <%s>", node.Data)
	}

	s.typed[node] = s.fieldValue(e.sel) + text

	return nil
}

// Click follows an anchor or submits the form owning a submit control.
func (s *HTTPSession) Click(ctx context.Context, el Element) error {
	e, ok := el.(*element)
	if !ok || e.sel.Length() == 0 {
		return fmt.Errorf("cannot click foreign element")
	}

	if goquery.NodeName(e.sel) == "a" {
		href, exists := e.sel.Attr("href")
		if !exists {
			return fmt.Errorf("cannot click anchor without href")
		}

		return s.Navigate(ctx, href)
	}

	if !isSubmit(e.sel) {
		return fmt.Errorf("cannot click <%s>: not a link or submit control", goquery.NodeName(e.sel))
	}

	form := e.sel.Closest("form")
	if form.Length() == 0 {
		return fmt.Errorf("cannot click submit control outside a form")
	}

	return s.submit(ctx, form, e.sel)
}

func (s *HTTPSession) submit(ctx context.Context, form, submitter *goquery.Selection) error {
	action, err := s.resolve(form.AttrOr("action", ""))
	if err != nil {
		return err
	}

	values := s.formValues(form)
	if name, ok := submitter.Attr("name"); ok && name != "" {
		values.Add(name, submitter.AttrOr("value", ""))
	}

	var resp *network.Response
	if strings.EqualFold(form.AttrOr("method", "get"), "post") {
		resp, err = s.client.PostForm(ctx, action, values)
	} else {
		u, _ := url.Parse(action)
		u.RawQuery = values.Encode()
		resp, err = s.client.Get(ctx, u.String())
	}

	if err != nil {
		return fmt.Errorf("cannot submit form to %s: %w", action, err)
	}

	return s.load(resp)
}

func (s *HTTPSession) formValues(form *goquery.Selection) url.Values {
	values := url.Values{}

	form.Find("input, textarea, select").Each(func(_ int, field *goquery.Selection) {
		name, ok := field.Attr("name")
		if !ok || name == "" {
			return
		}

		if _, disabled := field.Attr("disabled"); disabled {
			return
		}

		switch goquery.NodeName(field) {
		case "select":
			opt := field.Find("option[selected]").First()
			if opt.Length() == 0 {
				opt = field.Find("option").First()
			}
			if opt.Length() > 0 {
				values.Add(name, opt.AttrOr("value", strings.TrimSpace(opt.Text())))
			}
		case "textarea":
			values.Add(name, s.fieldValue(field))
		default:
			switch strings.ToLower(field.AttrOr("type", "text")) {
			case "submit", "button", "image", "reset", "file":
			case "checkbox", "radio":
				if _, checked := field.Attr("checked"); checked {
					values.Add(name, field.AttrOr("value", "on"))
				}
			default:
				values.Add(name, s.fieldValue(field))
			}
		}
	})

	return values
}

func (s *HTTPSession) fieldValue(field *goquery.Selection) string {
	if v, ok := s.typed[field.Get(0)]; ok {
		return v
	}

	if goquery.NodeName(field) == "textarea" {
		return field.Text()
	}

	return field.AttrOr("value", "")
}

func (s *HTTPSession) load(resp *network.Response) error {
	r, err := charset.NewReader(bytes.NewReader(resp.Body), resp.ContentType)
	if err != nil {
		return fmt.Errorf("cannot decode page %s: %w", resp.URL, err)
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return fmt.Errorf("cannot parse page %s: %w", resp.URL, err)
	}

	s.doc = doc
	s.url = resp.URL
	s.typed = make(map[*html.Node]string)
	s.log.Debug("Page loaded", slog.String("url", s.CurrentURL()))

	return nil
}

func (s *HTTPSession) resolve(rawURL string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("cannot parse url %q: %w", rawURL, err)
	}

	if s.url == nil {
		if !ref.IsAbs() {
			return "", fmt.Errorf("cannot resolve relative url %q without a loaded page", rawURL)
		}

		return ref.String(), nil
	}

	return s.url.ResolveReference(ref).String(), nil
}

func isSubmit(sel *goquery.Selection) bool {
	switch goquery.NodeName(sel) {
	case "button":
		t := strings.ToLower(sel.AttrOr("type", "submit"))
		return t == "submit"
	case "input":
		t := strings.ToLower(sel.AttrOr("type", ""))
		return t == "submit" || t == "image"
	}

	return false
}

type element struct {
	sel *goquery.Selection
}

func (e *element) Text() string {
	return strings.TrimSpace(e.sel.Text())
}

func (e *element) Attr(name string) (string, bool) {
	return e.sel.Attr(name)
}

func (e *element) FindAll(selector string) []Element {
	return wrap(e.sel.Find(selector))
}

func wrap(sel *goquery.Selection) []Element {
	elems := make([]Element, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		elems = append(elems, &element{sel: s})
	})

	return elems
}
