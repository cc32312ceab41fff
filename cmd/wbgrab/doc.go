// Command wbgrab downloads video reviews from product pages.
package main
