package chromedom

// bindingName is the function the injected script calls to hand a payload
// back to the agent.
const bindingName = "clicktrail"

// captureScript is evaluated on every new document. It forwards raw click
// and pointer-movement samples over the binding; all interpretation (target
// resolution, debouncing, selector building) happens on the Go side. The
// ancestor chain is captured eagerly because the element may be gone by the
// time the hover settles.
const captureScript = `(() => {
  if (window.__clicktrailInstalled) return;
  window.__clicktrailInstalled = true;

  const describeChain = (start) => {
    const chain = [];
    let el = start;
    while (el && el.nodeType === 1 && chain.length < 32) {
      let typeIndex = 1;
      let sib = el.previousElementSibling;
      while (sib) {
        if (sib.tagName === el.tagName) typeIndex++;
        sib = sib.previousElementSibling;
      }
      chain.push({
        tag: el.tagName.toLowerCase(),
        id: el.id || "",
        classes: el.classList ? Array.from(el.classList) : [],
        role: el.getAttribute ? (el.getAttribute("role") || "") : "",
        typeIndex: typeIndex,
        text: chain.length === 0 ? (el.innerText || "").slice(0, 600) : ""
      });
      el = el.parentElement;
    }
    return chain;
  };

  const send = (kind, ev) => {
    const target = ev.target && ev.target.nodeType === 1 ? ev.target : null;
    window.` + bindingName + `(JSON.stringify({
      kind: kind,
      url: location.href,
      x: ev.clientX,
      y: ev.clientY,
      pageX: ev.pageX,
      pageY: ev.pageY,
      scrollX: window.scrollX,
      scrollY: window.scrollY,
      viewportW: window.innerWidth,
      viewportH: window.innerHeight,
      docW: document.documentElement.scrollWidth,
      docH: document.documentElement.scrollHeight,
      ts: Date.now(),
      chain: target ? describeChain(target) : []
    }));
  };

  document.addEventListener("click", (ev) => send("click", ev), true);
  document.addEventListener("pointermove", (ev) => send("move", ev), true);
})();`

// visitScript snapshots the current page context for navigation baselines.
const visitScript = `({
  url: location.href,
  w: window.innerWidth,
  h: window.innerHeight
})`

// flashScript briefly outlines the element identified by the selector. The
// selector is embedded as a JSON string literal, never concatenated raw.
const flashScript = `((sel) => {
  try {
    const el = document.querySelector(sel);
    if (!el) return;
    const prev = el.style.outline;
    el.style.outline = "2px solid rgba(255,64,64,0.9)";
    setTimeout(() => { el.style.outline = prev; }, 300);
  } catch (e) {}
})(%s)`
