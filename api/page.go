package api

import (
	"html/template"
	"net/http"

	"github.com/qrcraft/qrcraft/highlight"
)

type pageData struct {
	Sizes       []int
	DefaultSize int
	LogoName    string
	Background  template.HTML
	Version     string
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	data := pageData{
		Sizes:       s.Studio.AllowedSizes(),
		DefaultSize: s.DefaultSize,
		LogoName:    "None",
		Background:  highlight.Background(),
		Version:     s.Version,
	}
	if l, ok := s.Studio.Logo(); ok {
		data.LogoName = l.Name
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTmpl.Execute(w, data); err != nil {
		s.Log.Error("render page", "error", err)
	}
}

var pageTmpl = template.Must(template.New("page").Parse(pageHTML))

const pageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>QR Code Generator</title>
<style>
  * { margin: 0; padding: 0; box-sizing: border-box; }
  body {
    font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
    background: #0a0a0a;
    color: #e0e0e0;
    display: flex;
    justify-content: center;
    align-items: center;
    min-height: 100vh;
    overflow: hidden;
  }
  .code-background {
    position: fixed; inset: 0;
    padding: 24px;
    opacity: 0.18;
    font: 12px/1.5 "SFMono-Regular", Menlo, Consolas, monospace;
    pointer-events: none;
    overflow: hidden;
  }
  .code-sample { margin: 0; white-space: pre-wrap; word-wrap: break-word; }
  .tok-keyword { color: #C678DD; }
  .tok-call    { color: #61AFEF; }
  .tok-comment { color: #5C6370; }
  .tok-string  { color: #98C379; }
  .tok-number, .tok-literal { color: #D19A66; }
  .card {
    position: relative;
    background: #1a1a1a;
    border: 1px solid #333;
    border-radius: 16px;
    padding: 40px;
    max-width: 460px;
    width: 100%;
  }
  h1 { font-size: 20px; font-weight: 600; margin-bottom: 24px; text-align: center; }
  .input-section { display: flex; flex-direction: column; gap: 12px; }
  input[type=text], select {
    background: #0f0f0f; color: #e0e0e0;
    border: 1px solid #333; border-radius: 8px;
    padding: 10px 12px; font-size: 14px;
  }
  .logo-row { display: flex; align-items: center; gap: 8px; font-size: 13px; color: #888; }
  button {
    background: #2563eb; color: #fff; border: 0; border-radius: 8px;
    padding: 10px 14px; font-size: 14px; cursor: pointer;
  }
  button.secondary { background: #333; padding: 6px 10px; font-size: 12px; }
  button:disabled { opacity: 0.6; cursor: default; }
  .error { color: #f87171; font-size: 13px; }
  .success { color: #4ade80; font-size: 13px; }
  #logo-upload { display: none; }
</style>
</head>
<body>
<div class="code-background">{{.Background}}</div>
<div class="card">
  <h1>QR Code Generator</h1>
  <div class="input-section">
    <input type="text" id="url-input" placeholder="Enter a URL or text" autocomplete="off">
    <select id="qr-size">
      {{- range .Sizes}}
      <option value="{{.}}"{{if eq . $.DefaultSize}} selected{{end}}>{{.}} &times; {{.}}</option>
      {{- end}}
    </select>
    <div class="logo-row">
      <button type="button" class="secondary" id="upload-btn">Add logo</button>
      <span>Logo: <span id="file-name">{{.LogoName}}</span></span>
      <button type="button" class="secondary" id="clear-image-btn"{{if eq .LogoName "None"}} style="display:none"{{end}}>Clear</button>
      <input type="file" id="logo-upload" accept="image/*">
    </div>
    <button type="button" id="generate-btn">Generate &amp; Download</button>
  </div>
</div>
<script>
(function() {
  var urlInput = document.getElementById('url-input');
  var qrSize = document.getElementById('qr-size');
  var generateBtn = document.getElementById('generate-btn');
  var logoUpload = document.getElementById('logo-upload');
  var uploadBtn = document.getElementById('upload-btn');
  var fileName = document.getElementById('file-name');
  var clearBtn = document.getElementById('clear-image-btn');
  var section = document.querySelector('.input-section');

  function removeNotice() {
    var old = document.getElementById('notice');
    if (old) old.remove();
  }

  function showNotice(kind, message) {
    removeNotice();
    var el = document.createElement('div');
    el.id = 'notice';
    el.className = kind;
    el.textContent = message;
    section.insertBefore(el, section.firstChild);
    if (kind === 'success') {
      setTimeout(function() { el.remove(); }, 3000);
    }
  }

  function errorMessage(resp) {
    return resp.json().then(function(b) { return b.error; }, function() { return 'Failed to generate QR code'; });
  }

  uploadBtn.addEventListener('click', function() { logoUpload.click(); });

  logoUpload.addEventListener('change', function() {
    var file = logoUpload.files[0];
    if (!file) return;
    var form = new FormData();
    form.append('logo', file);
    fetch('/logo', { method: 'POST', body: form }).then(function(resp) {
      if (!resp.ok) {
        return errorMessage(resp).then(function(msg) { showNotice('error', msg); });
      }
      return resp.json().then(function(logo) {
        fileName.textContent = logo.name;
        clearBtn.style.display = 'inline-block';
      });
    }).catch(function() { showNotice('error', 'Could not upload the selected image'); });
  });

  clearBtn.addEventListener('click', function() {
    fetch('/logo', { method: 'DELETE' }).then(function() {
      logoUpload.value = '';
      fileName.textContent = 'None';
      clearBtn.style.display = 'none';
    });
  });

  function generate() {
    if (generateBtn.disabled) return;
    removeNotice();
    if (!urlInput.value.trim()) {
      showNotice('error', 'Please enter a URL or text');
      return;
    }

    var label = generateBtn.textContent;
    generateBtn.disabled = true;
    generateBtn.textContent = 'Generating...';

    fetch('/generate', {
      method: 'POST',
      headers: { 'Content-Type': 'application/json' },
      body: JSON.stringify({ text: urlInput.value, size: parseInt(qrSize.value, 10) })
    }).then(function(resp) {
      if (!resp.ok) {
        return errorMessage(resp).then(function(msg) { showNotice('error', msg); });
      }
      var name = resp.headers.get('X-QR-Filename') || ('qrcode-' + Date.now() + '.png');
      return resp.blob().then(function(blob) {
        var url = URL.createObjectURL(blob);
        var link = document.createElement('a');
        link.href = url;
        link.download = name;
        document.body.appendChild(link);
        link.click();
        document.body.removeChild(link);
        URL.revokeObjectURL(url);
        urlInput.value = '';
        showNotice('success', 'QR code downloaded');
      });
    }).catch(function() {
      showNotice('error', 'Failed to generate QR code');
    }).then(function() {
      generateBtn.disabled = false;
      generateBtn.textContent = label;
    });
  }

  generateBtn.addEventListener('click', generate);
  urlInput.addEventListener('keydown', function(e) {
    if (e.key === 'Enter') generate();
  });

  window.addEventListener('load', function() { urlInput.focus(); });
})();
</script>
</body>
</html>`
