package ingest

import (
	"net/url"
	"strings"

	"github.com/Aman-CERP/amandocs/internal/gitrepo"
)

// hostProvider builds links to a file in a hosted repository.
type hostProvider struct {
	name  string
	hosts []string
	// link receives the repository web URL without ".git", the ref and the
	// slash-separated file path.
	link func(repo string, ref gitrepo.Ref, path string) string
}

func blobLink(segment string) func(string, gitrepo.Ref, string) string {
	return func(repo string, ref gitrepo.Ref, path string) string {
		return repo + segment + ref.Name() + "/" + path
	}
}

// azureLink uses the version prefixes of Azure DevOps: GB branch, GT tag,
// GC commit.
func azureLink(repo string, ref gitrepo.Ref, path string) string {
	version := "GB" + ref.Name()
	switch {
	case ref.Branch != "":
	case ref.Tag != "":
		version = "GT" + ref.Tag
	case ref.Commit != "":
		version = "GC" + ref.Commit
	}
	return repo + "?path=/" + path + "&version=" + version
}

var hostProviders = []hostProvider{
	{name: "github", hosts: []string{"github.com"}, link: blobLink("/blob/")},
	{name: "gitlab", hosts: []string{"gitlab.com"}, link: blobLink("/-/blob/")},
	{name: "bitbucket", hosts: []string{"bitbucket.org"}, link: blobLink("/src/")},
	{name: "azure", hosts: []string{"dev.azure.com", ".visualstudio.com"}, link: azureLink},
}

// unknown hosts get GitHub-style links, the most common layout for
// self-hosted forges.
var defaultProvider = hostProvider{name: "generic", link: blobLink("/blob/")}

// SourceURL returns the web link to path at ref in the repository cloned
// from cloneURL.
func SourceURL(cloneURL string, ref gitrepo.Ref, path string) string {
	repo, host := webRepoURL(cloneURL)
	return providerFor(host).link(repo, ref, strings.TrimPrefix(path, "/"))
}

func providerFor(host string) hostProvider {
	host = strings.ToLower(host)
	for _, p := range hostProviders {
		for _, h := range p.hosts {
			if host == h || (strings.HasPrefix(h, ".") && strings.HasSuffix(host, h)) {
				return p
			}
		}
	}
	return defaultProvider
}

// webRepoURL turns a clone URL (https or scp-like ssh) into the repository's
// web URL and host.
func webRepoURL(cloneURL string) (string, string) {
	raw := strings.TrimSpace(cloneURL)

	// git@github.com:org/repo.git
	if !strings.Contains(raw, "://") {
		if at := strings.Index(raw, "@"); at >= 0 {
			if colon := strings.Index(raw[at:], ":"); colon > 0 {
				host := raw[at+1 : at+colon]
				raw = "https://" + host + "/" + raw[at+colon+1:]
			}
		}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return strings.TrimSuffix(strings.TrimRight(raw, "/"), ".git"), ""
	}
	if u.Scheme == "ssh" || u.Scheme == "git" {
		u.Scheme = "https"
	}
	u.User = nil
	u.Path = strings.TrimSuffix(strings.TrimRight(u.Path, "/"), ".git")
	// Azure ssh paths carry a "v3/" prefix the web UI does not use.
	if strings.HasPrefix(u.Host, "ssh.dev.azure.com") {
		u.Host = "dev.azure.com"
		if parts := strings.SplitN(strings.TrimPrefix(u.Path, "/v3/"), "/", 3); len(parts) == 3 {
			u.Path = "/" + parts[0] + "/" + parts[1] + "/_git/" + parts[2]
		}
	}
	return u.String(), u.Hostname()
}
