package export

import (
	"context"

	"github.com/proarc/proarc/pkg/proarc/fedora"
	"github.com/proarc/proarc/pkg/proarc/mets"
)

// LoadTree resolves pid with all its descendants and the chain of its
// ancestors in a fresh traversal context.
func LoadTree(ctx context.Context, storage fedora.Storage, pid string, opts mets.Options) (*mets.Element, error) {
	mctx := mets.NewContext(storage, opts)
	return mets.GetElementWithAncestors(ctx, pid, mctx, true)
}

// Pages returns the page descendants of e in structural order.
func Pages(e *mets.Element) []*mets.Element {
	var out []*mets.Element
	_ = e.Walk(func(c *mets.Element) error {
		if c.Type.IsPage() {
			out = append(out, c)
		}
		return nil
	})
	return out
}

// IssueArticles is one issue with the articles selected from it.
type IssueArticles struct {
	Issue    *mets.Element
	Articles []*mets.Element
}

// GroupArticles collects the article descendants of e (e included) by their
// enclosing issue in structural order. Articles outside any issue are
// returned as orphans.
func GroupArticles(e *mets.Element) (groups []*IssueArticles, orphans []*mets.Element) {
	byIssue := map[string]*IssueArticles{}
	_ = e.Walk(func(c *mets.Element) error {
		if c.Type != mets.TypeArticle {
			return nil
		}
		issue := mets.FindEnclosingObject(c, mets.TypeIssue)
		if issue == nil {
			orphans = append(orphans, c)
			return nil
		}
		g, ok := byIssue[issue.PID]
		if !ok {
			g = &IssueArticles{Issue: issue}
			byIssue[issue.PID] = g
			groups = append(groups, g)
		}
		g.Articles = append(g.Articles, c)
		return nil
	})
	return groups, orphans
}
