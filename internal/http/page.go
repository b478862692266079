package http

import (
	"html/template"

	"moff.io/wallet-modal/internal/connector"
	"moff.io/wallet-modal/internal/selection"
)

type providerView struct {
	// Logo is trusted: descriptors come from code or operator config.
	Logo        template.URL
	Name        string
	Description string
}

type pageView struct {
	Pending      bool
	Presentation selection.Presentation
	Descriptors  []providerView
	QR           bool
	Connected    bool
	ConnectorID  string
}

func providerViews(ds []*connector.Descriptor) []providerView {
	out := make([]providerView, len(ds))
	for i, d := range ds {
		out[i] = providerView{
			Logo:        template.URL(d.Display.Logo),
			Name:        d.Display.Name,
			Description: d.Display.Description,
		}
	}
	return out
}

const chooserPage = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Connect a wallet</title>
{{if not .Pending}}<meta http-equiv="refresh" content="3">{{end}}
<style>
body { font-family: sans-serif; background: #f4f4f5; }
.modal { width: {{.Presentation.Width}}; max-width: {{.Presentation.MaxWidth}}; margin: 10vh auto; background: #fff; border-radius: 12px; padding: 8px; }
.provider { display: flex; align-items: center; width: 100%; padding: 16px; border: 0; background: none; cursor: pointer; text-align: left; }
.provider:hover { background: #f0f0f5; }
.provider img { width: 45px; height: 45px; margin-right: 16px; }
.name { font-size: 20px; font-weight: 700; }
.description { color: #a9a9bc; }
.qr { text-align: center; }
</style>
</head>
<body>
<div class="modal">
{{if .Pending}}
{{range $i, $d := .Descriptors}}
<form method="post" action="/chooser/pick/{{$i}}">
<button class="provider" type="submit">
<img src="{{$d.Logo}}" alt="{{$d.Name}}">
<span><div class="name">{{$d.Name}}</div><div class="description">{{$d.Description}}</div></span>
</button>
</form>
{{end}}
<form method="post" action="/chooser/dismiss"><button class="provider" type="submit">Cancel</button></form>
{{else if .QR}}
<div class="qr"><img src="/walletconnect/qr.png" alt="WalletConnect"><p>Scan with a WalletConnect wallet</p></div>
{{else}}
<p>{{if .Connected}}Connected with {{.ConnectorID}}.{{else}}No connection request pending.{{end}}</p>
{{end}}
</div>
</body>
</html>
`

var chooserTemplate = template.Must(template.New("chooser").Parse(chooserPage))
