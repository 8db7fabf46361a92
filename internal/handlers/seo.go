package handlers

import (
	"encoding/xml"
	"fmt"
	"folio/internal/services"
	"folio/internal/utils"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	sitemapLimit = 500
	feedLimit    = 20
)

type SEOHandler struct {
	projects *services.ProjectService
	catalog  *services.CatalogService
	siteURL  string
	title    string
	log      logrus.FieldLogger
}

func NewSEOHandler(projects *services.ProjectService, catalog *services.CatalogService, siteURL, title string, log logrus.FieldLogger) *SEOHandler {
	return &SEOHandler{
		projects: projects,
		catalog:  catalog,
		siteURL:  strings.TrimSuffix(siteURL, "/"),
		title:    title,
		log:      log,
	}
}

// RobotsTxt 禁止爬取登录和管理页面
func (h *SEOHandler) RobotsTxt(c *gin.Context) {
	content := fmt.Sprintf(`User-agent: *
Allow: /

Disallow: /login
Disallow: /register
Disallow: /profile/edit
Disallow: /me/
Disallow: /categories
Disallow: /technologies
Disallow: /skills

Sitemap: %s/sitemap.xml
`, h.siteURL)
	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.String(http.StatusOK, content)
}

type sitemapURL struct {
	Loc        string  `xml:"loc"`
	LastMod    string  `xml:"lastmod,omitempty"`
	ChangeFreq string  `xml:"changefreq,omitempty"`
	Priority   float64 `xml:"priority,omitempty"`
}

type urlset struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

// SitemapXML 静态页、分类页和最近的项目
func (h *SEOHandler) SitemapXML(c *gin.Context) {
	ctx := c.Request.Context()
	today := time.Now().Format(dayLayout)

	set := urlset{Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	set.URLs = append(set.URLs,
		sitemapURL{Loc: h.siteURL + "/", LastMod: today, ChangeFreq: "weekly", Priority: 1.0},
		sitemapURL{Loc: h.siteURL + "/projects", LastMod: today, ChangeFreq: "weekly", Priority: 0.9},
		sitemapURL{Loc: h.siteURL + "/about", ChangeFreq: "monthly", Priority: 0.8},
	)

	categories, err := h.catalog.ListCategories(ctx)
	if err != nil {
		h.xmlError(c, err)
		return
	}
	for _, cat := range categories {
		set.URLs = append(set.URLs, sitemapURL{Loc: h.siteURL + "/projects/category/" + cat.Slug, ChangeFreq: "weekly", Priority: 0.7})
	}

	projects, err := h.projects.Recent(ctx, sitemapLimit)
	if err != nil {
		h.xmlError(c, err)
		return
	}
	for _, p := range projects {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        h.siteURL + projectURL(p.Slug),
			LastMod:    p.UpdatedAt.Format(dayLayout),
			ChangeFreq: "monthly",
			Priority:   0.6,
		})
	}
	h.writeXML(c, "application/xml; charset=utf-8", set)
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	Description string   `xml:"description"`
	Categories  []string `xml:"category"`
	PubDate     string   `xml:"pubDate"`
	GUID        rssGUID  `xml:"guid"`
}

type rssGUID struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	LastBuildDate string    `xml:"lastBuildDate"`
	Items         []rssItem `xml:"item"`
}

type rssFeed struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

// RSSFeed 最近 20 个项目，正文取渲染后的前三个块
func (h *SEOHandler) RSSFeed(c *gin.Context) {
	projects, err := h.projects.Recent(c.Request.Context(), feedLimit)
	if err != nil {
		h.xmlError(c, err)
		return
	}

	feed := rssFeed{Version: "2.0", Channel: rssChannel{
		Title:         h.title,
		Link:          h.siteURL + "/",
		Description:   "Latest projects",
		LastBuildDate: time.Now().Format(time.RFC1123Z),
	}}
	for _, p := range projects {
		link := h.siteURL + projectURL(p.Slug)
		item := rssItem{
			Title:       p.Title,
			Link:        link,
			Description: truncateByParagraph(string(utils.RenderMarkdown(p.Content)), 3),
			PubDate:     p.CreatedAt.Format(time.RFC1123Z),
			GUID:        rssGUID{IsPermaLink: true, Value: link},
		}
		for _, cat := range p.Categories {
			item.Categories = append(item.Categories, cat.Name)
		}
		feed.Channel.Items = append(feed.Channel.Items, item)
	}
	h.writeXML(c, "application/rss+xml; charset=utf-8", feed)
}

func (h *SEOHandler) writeXML(c *gin.Context, contentType string, v any) {
	out, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		h.xmlError(c, err)
		return
	}
	c.Data(http.StatusOK, contentType, append([]byte(xml.Header), out...))
}

func (h *SEOHandler) xmlError(c *gin.Context, err error) {
	utils.LogError(h.log, "seo render failed", err, logrus.Fields{"path": c.Request.URL.Path})
	c.String(http.StatusInternalServerError, "internal error")
}

var blockRe = regexp.MustCompile(`(?s)<(?:p|div|h[1-6]|ul|ol|blockquote|pre|table)[^>]*>.*?</(?:p|div|h[1-6]|ul|ol|blockquote|pre|table)>`)

// truncateByParagraph 保留前几个完整块级元素，没有块级元素时按纯文本截取
func truncateByParagraph(content string, maxBlocks int) string {
	matches := blockRe.FindAllString(content, maxBlocks)
	if len(matches) == 0 {
		return utils.Excerpt(content, 300)
	}
	return strings.Join(matches, "\n")
}
