// Package tex2img renders mixed Markdown/LaTeX/TikZ/Mermaid text to a
// raster image using headless Chrome.
//
// # Quick Start
//
// Create a service, render, and close when done:
//
//	svc := tex2img.New()
//	defer svc.Close()
//
//	outcome, err := svc.Render(ctx, tex2img.Request{
//	    Text:       content,
//	    OutputPath: "out.png",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(outcome.ImagePath)
//
// # Rendering Pipeline
//
// The pipeline has three phases:
//
//  1. Preprocessing: LaTeX text commands, lists, tables, TikZ
//     environments and Mermaid fences are rewritten into Markdown plus
//     embeddable script blocks. TikZ plot commands are expanded into
//     explicit coordinate chains by sampling their expressions through a
//     sandboxed evaluator.
//  2. Assembly: math and fenced code are placeholder-protected, the rest
//     is converted with Goldmark, protected spans are restored verbatim,
//     and the result is injected into the page template.
//  3. Capture: the page is loaded in headless Chrome (go-rod) and a
//     completion detector polls MathJax typesetting and in-browser TikZ
//     compilation through a sequence of readiness gates before resizing
//     the viewport and taking a full-page screenshot.
//
// # Configuration
//
// Use functional options to customize the service:
//
//	svc := tex2img.New(
//	    tex2img.WithRenderSpec(spec),
//	    tex2img.WithLogger(logger),
//	    tex2img.WithStaticDir("/path/to/static"),
//	)
//
// # Browser Requirements
//
// Rendering requires Chrome/Chromium. The go-rod library downloads a
// managed Chromium on first run (~/.cache/rod/browser/). Set
// ROD_BROWSER_BIN to use a pre-installed binary; ROD_NO_SANDBOX=1
// disables the sandbox for containers and CI. Use CheckBrowser to probe
// availability before rendering.
package tex2img
