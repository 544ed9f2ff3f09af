package service

// DefaultTrustListsConfig returns the built-in trust lists. A policy file
// replaces any list it sets.
func DefaultTrustListsConfig() TrustListsConfig {
	return TrustListsConfig{
		TopSites: []string{
			"google.com", "youtube.com", "facebook.com", "twitter.com",
			"instagram.com", "linkedin.com", "wikipedia.org", "amazon.com",
			"apple.com", "microsoft.com", "netflix.com", "reddit.com",
			"yahoo.com", "tiktok.com", "live.com", "office.com",
			"zoom.us", "bing.com", "microsoftonline.com", "github.com",
		},
		TrustedDomains: []string{
			"google.co.uk", "google.de", "google.fr", "google.ca", "google.co.jp",
			"gmail.com", "android.com", "chromium.org",
			"windows.com", "azure.com", "outlook.com", "visualstudio.com",
			"icloud.com", "itunes.com",
			"amazon.co.uk", "amazon.de", "amazon.fr", "amazon.co.jp", "amazonaws.com",
			"fb.com", "whatsapp.com", "messenger.com", "x.com",
			"spotify.com", "paypal.com", "ebay.com",
			"adobe.com", "salesforce.com", "oracle.com", "ibm.com", "cisco.com",
			"intel.com", "nvidia.com", "dell.com", "hp.com",
			"dropbox.com", "box.com", "slack.com", "notion.so",
			"cloudflare.com", "fastly.com", "akamai.com",
			"chase.com", "bankofamerica.com", "wellsfargo.com", "citibank.com",
			"usbank.com", "capitalone.com", "hsbc.com", "barclays.co.uk",
			"santander.com", "ing.com", "ubs.com",
			"alibaba.com", "aliexpress.com", "walmart.com", "target.com",
			"shopify.com", "etsy.com", "rakuten.com",
			"cnn.com", "bbc.com", "bbc.co.uk", "nytimes.com", "reuters.com",
			"bloomberg.com", "theguardian.com", "wsj.com", "ft.com",
			"wikimedia.org", "britannica.com", "coursera.org", "edx.org", "khanacademy.org",
			"mit.edu", "stanford.edu", "harvard.edu", "berkeley.edu", "ox.ac.uk",
		},
		MediumDomains: []string{
			"stackoverflow.com", "stackexchange.com", "quora.com", "medium.com", "dev.to",
			"gitlab.com", "bitbucket.org", "sourceforge.net",
			"npmjs.com", "pypi.org", "rubygems.org", "docker.com", "kubernetes.io",
			"discord.com", "telegram.org", "signal.org", "skype.com",
			"twitch.tv", "vimeo.com", "soundcloud.com", "imdb.com",
			"weather.com", "indeed.com", "glassdoor.com",
			"airbnb.com", "booking.com", "expedia.com", "tripadvisor.com",
			"uber.com", "lyft.com",
			"baidu.com", "weibo.com", "qq.com", "naver.com", "yahoo.co.jp",
			"yandex.ru", "vk.com",
		},
		GovernmentDomains: []string{
			"usa.gov", "whitehouse.gov", "irs.gov", "ssa.gov",
			"gov.uk", "nhs.uk", "service-public.fr", "bund.de", "gob.mx",
		},
		GovernmentSuffixes: []string{
			"gov", "gov.uk", "gov.au", "gov.ca", "gov.in", "gov.br",
			"gov.cn", "gov.jp", "gov.de", "gov.fr", "mil", "gov.sa",
		},
		EducationalSuffixes: []string{"edu", "ac.uk", "edu.au", "ac.jp", "edu.cn"},
		TrustedTLDs:         []string{"com", "org", "net", "edu", "gov"},
		SuspiciousTLDs: map[string]float64{
			"tk": 0.4, "ml": 0.4, "ga": 0.4, "cf": 0.4, "gq": 0.4,
			"xyz": 0.2, "top": 0.2, "work": 0.15, "click": 0.25,
			"link": 0.15, "loan": 0.3, "men": 0.25, "party": 0.2,
			"racing": 0.2, "review": 0.2,
		},
		HighTrustKeywords: []string{
			"google", "microsoft", "apple", "amazon", "facebook", "meta",
			"twitter", "netflix", "spotify", "paypal", "ebay",
			"github", "linkedin", "youtube", "instagram", "whatsapp",
		},
		MediumTrustKeywords: []string{
			"bank", "finance", "insurance", "government", "official",
			"university", "college", "school", "hospital", "health",
		},
		SuspiciousKeywords: []string{
			"login", "signin", "sign-in", "account", "verify", "verification",
			"secure", "security", "update", "confirm", "validate",
			"suspended", "locked", "alert", "urgent", "warning",
			"password", "credential", "authenticate",
			"free", "prize", "winner", "gift", "expire",
		},
		PhishingSubstrings: []string{
			"login-", "-login", "signin-", "-signin",
			"account-", "-account", "secure-", "-secure",
			"verify-", "-verify", "update-", "-update",
			"confirm-", "-confirm",
		},
		MaxSubdomainLabels: 3,
		MaxHyphens:         2,
		MaxSubdomainLength: 30,
	}
}
