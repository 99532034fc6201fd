// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package fetch retrieves source documents and reduces them to plain text.
//
// Sources may be http(s) URLs, file:// URLs, or bare filesystem paths.
// Content is classified by media type, file extension, or sniffing, and
// then extracted: HTML via an element walk that prefers article and main
// content, PDF via the embedded text layer, and plain text or markdown as-is.
package fetch
