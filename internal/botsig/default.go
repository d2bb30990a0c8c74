package botsig

// DefaultSets are the built-in signature sets. Deployments can override any
// category through the signatures YAML file.
var DefaultSets = Sets{
	BrowserMarkers: []string{
		"Mozilla",
	},
	ScriptedAgents: []string{
		"python-requests",
		"python-urllib",
		"go-http-client",
		"curl/",
		"wget/",
		"libwww-perl",
		"java/",
		"okhttp",
		"scrapy",
		"httpclient",
		"aiohttp",
		"headlesschrome",
		"phantomjs",
		"selenium",
		"puppeteer",
		"playwright",
	},
	SoftwareRenderers: []string{
		"swiftshader",
		"llvmpipe",
		"softpipe",
		"software rasterizer",
		"softwarerenderer",
		"mesa offscreen",
		"microsoft basic render",
	},
}
