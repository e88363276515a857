// Package indexeddb stores saved images in the browser's IndexedDB, in the
// "images" object store of the "PhotoAppDB" database. The backend is only
// built for js/wasm.
package indexeddb
