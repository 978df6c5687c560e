// Package wxjsx compiles mini-program markup into component markup.
//
// A document such as
//
//	<block wx:for="{{list}}" wx:key="id"><text/></block>
//
// becomes
//
//	{list.map((item)=><Block key="id"><Text/></Block>)}
//
// Tag names become component names ("list-items" becomes "ListItems"),
// bind* event attributes become on* handlers, "{{" and "}}" are stripped from
// attribute values, wx:key becomes key, and wx:for wraps the element in a map
// call.
//
// # Usage
//
//	out, err := wxjsx.Compile(`<view class="abc"><text/></view>`)
//	// out == `<View class="abc"><Text/></View>`
//
// Compile is a pure function of its input and safe to call concurrently.
// On failure it returns a *CompileError with the line and column of the
// problem and no partial output.
//
// # Options
//
// The defaults keep the historical output except where it was malformed:
//
//   - WithLenientCloseTags accepts any closing tag as the end of the current
//     element instead of requiring the matching name.
//   - WithConditionalIf renders wx:if as {cond && element}; by default the
//     condition is dropped.
//   - WithLegacyForWrap reproduces the old unbalanced loop wrapper.
//   - WithUniformTagCase converts self-closing tag names the same way as
//     open tags.
package wxjsx
